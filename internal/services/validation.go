package services

import (
	"net/mail"
	"strings"
	"time"

	"github.com/growthpath/growthpath-be/internal/models"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt ignores anything longer
	maxNameLength     = 100
)

// validateEmail checks that email is present and parses as a bare address.
func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// validatePassword checks the length bounds of a new password.
func validatePassword(field, password string) error {
	if password == "" {
		return ValidationError{Field: field, Message: "password is required"}
	}
	if len(password) < minPasswordLength {
		return ValidationError{Field: field, Message: "password must be at least 6 characters"}
	}
	if len(password) > maxPasswordLength {
		return ValidationError{Field: field, Message: "password must be at most 72 bytes"}
	}
	return nil
}

func validateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if len(name) > maxNameLength {
		return ValidationError{Field: field, Message: field + " is too long"}
	}
	return nil
}

// ChildInput is the user-supplied description of a child profile.
type ChildInput struct {
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Birthday string `json:"birthday"`
}

// parse validates the input and converts it to typed fields. A missing gender
// is returned empty; callers decide whether to default or keep it.
func (in ChildInput) parse(now time.Time) (string, models.Gender, time.Time, error) {
	if err := validateName("name", in.Name); err != nil {
		return "", "", time.Time{}, err
	}
	if strings.TrimSpace(in.Birthday) == "" {
		return "", "", time.Time{}, ValidationError{Field: "birthday", Message: "birthday is required"}
	}
	birthday, err := models.ParseBirthday(in.Birthday)
	if err != nil {
		return "", "", time.Time{}, ValidationError{Field: "birthday", Message: err.Error()}
	}
	if birthday.After(now) {
		return "", "", time.Time{}, ValidationError{Field: "birthday", Message: "birthday cannot be in the future"}
	}

	gender := models.Gender(strings.ToLower(strings.TrimSpace(in.Gender)))
	if gender != "" && !gender.Valid() {
		return "", "", time.Time{}, ValidationError{Field: "gender", Message: "gender must be female, male or other"}
	}
	return strings.TrimSpace(in.Name), gender, birthday, nil
}
