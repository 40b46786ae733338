package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Gender is the enumerated gender of a child profile.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderFemale, GenderMale, GenderOther:
		return true
	}
	return false
}

// BirthdayLayout is the date format accepted for birthdays.
const BirthdayLayout = "2006-01-02"

// Child represents a child profile owned by a user.
type Child struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string          `bson:"name" json:"name"`
	Gender    Gender          `bson:"gender" json:"gender"`
	Birthday  time.Time       `bson:"birthday" json:"birthday"`
	UserID    bson.ObjectID   `bson:"userId" json:"userId"`
	Paths     []bson.ObjectID `bson:"paths" json:"paths"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Validate reports whether the document conforms to the child schema.
func (c *Child) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("child: name is required")
	}
	if !c.Gender.Valid() {
		return fmt.Errorf("child: invalid gender %q", c.Gender)
	}
	if c.Birthday.IsZero() {
		return errors.New("child: birthday is required")
	}
	if c.UserID.IsZero() {
		return errors.New("child: owner is required")
	}
	return nil
}

// AgeAt returns the child's age in whole years at the given instant.
func (c *Child) AgeAt(now time.Time) int {
	return AgeAt(c.Birthday, now)
}

// AgeAt returns the number of full years between birthday and now.
func AgeAt(birthday, now time.Time) int {
	birthday = birthday.UTC()
	now = now.UTC()
	age := now.Year() - birthday.Year()
	if now.Month() < birthday.Month() || (now.Month() == birthday.Month() && now.Day() < birthday.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// ParseBirthday accepts a calendar date or an RFC 3339 timestamp.
func ParseBirthday(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(BirthdayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("birthday must be formatted as %s", BirthdayLayout)
	}
	return t.UTC(), nil
}
