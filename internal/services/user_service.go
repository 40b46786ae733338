package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/growthpath/growthpath-be/internal/models"
	"github.com/growthpath/growthpath-be/internal/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(password, hash string) bool
	CheckDummy(password string)
}

// RegisterInput is everything collected by the onboarding flow.
type RegisterInput struct {
	Name          string
	FamilyName    string
	Email         string
	Password      string
	Children      []ChildInput
	SelectedPaths []string
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	Name       string `json:"name"`
	FamilyName string `json:"familyName"`
	Email      string `json:"email"`
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.Identity, error)
	GetIdentity(ctx context.Context, userID string) (models.Identity, error)
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (models.Profile, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// UserService provides business logic for parent accounts.
type UserService struct {
	users    repository.UserRepository
	children *ChildService
	hasher   PasswordHasher
	events   EventServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, children *ChildService, hasher PasswordHasher, events EventServiceProvider) *UserService {
	return &UserService{users: users, children: children, hasher: hasher, events: events}
}

// Register creates the account, its onboarding children, and enrolls every
// child in each selected path. Unknown paths are skipped.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if err := validateName("name", in.Name); err != nil {
		return models.User{}, err
	}
	if err := validateEmail(in.Email); err != nil {
		return models.User{}, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return models.User{}, err
	}
	for i, child := range in.Children {
		if _, _, _, err := child.parse(s.children.now()); err != nil {
			var verr ValidationError
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("children[%d].%s", i, verr.Field)
				return models.User{}, verr
			}
			return models.User{}, err
		}
	}

	email := models.NormalizeEmail(in.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		FamilyName:   strings.TrimSpace(in.FamilyName),
		Children:     []bson.ObjectID{},
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	var created []models.Child
	for _, childIn := range in.Children {
		child, err := s.children.createChild(ctx, user.ID, childIn)
		if err != nil {
			return models.User{}, err
		}
		created = append(created, child)
		user.Children = append(user.Children, child.ID)
	}

	userID := user.ID.Hex()
	for _, ref := range in.SelectedPaths {
		for _, child := range created {
			if _, err := s.children.EnrollChild(ctx, userID, child.ID.Hex(), ref); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					log.Warn().Str("path", ref).Str("user_id", userID).Msg("Skipping unknown path selected at registration")
					break
				}
				return models.User{}, err
			}
		}
	}

	log.Info().Str("user_id", userID).Int("children", len(created)).Msg("User registered")
	return user, nil
}

// Authenticate verifies credentials. An unknown email and a wrong password
// produce the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.Identity, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return models.Identity{}, ValidationError{Field: "email", Message: "email is required"}
	}
	if password == "" {
		return models.Identity{}, ValidationError{Field: "password", Message: "password is required"}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CheckDummy(password)
			return models.Identity{}, ErrInvalidCredentials
		}
		return models.Identity{}, err
	}
	if !s.hasher.CheckPassword(password, user.PasswordHash) {
		return models.Identity{}, ErrInvalidCredentials
	}
	return user.Identity(), nil
}

// GetIdentity re-reads the user behind a session.
func (s *UserService) GetIdentity(ctx context.Context, userID string) (models.Identity, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return models.Identity{}, err
	}
	return user.Identity(), nil
}

// GetProfile returns the user's public profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	return profileOf(user), nil
}

// UpdateProfile replaces the name, family name and email of the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (models.Profile, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return models.Profile{}, err
	}
	if err := validateName("name", in.Name); err != nil {
		return models.Profile{}, err
	}
	if err := validateEmail(in.Email); err != nil {
		return models.Profile{}, err
	}

	user, err := s.users.UpdateProfile(ctx, uid, repository.ProfileUpdate{
		Name:       strings.TrimSpace(in.Name),
		FamilyName: strings.TrimSpace(in.FamilyName),
		Email:      models.NormalizeEmail(in.Email),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Profile{}, ErrEmailTaken
		}
		return models.Profile{}, err
	}

	recordEvent(ctx, s.events, uid, nil, models.EventProfileUpdate, "Updated profile")
	return profileOf(user), nil
}

// ChangePassword sets a new password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return ValidationError{Field: "currentPassword", Message: "current password is required"}
	}
	if err := validatePassword("newPassword", newPassword); err != nil {
		return err
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	recordEvent(ctx, s.events, user.ID, nil, models.EventPasswordChange, "Changed password")
	return nil
}

func (s *UserService) getUser(ctx context.Context, userID string) (models.User, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, uid)
}

func profileOf(u models.User) models.Profile {
	return models.Profile{Name: u.Name, FamilyName: u.FamilyName, Email: u.Email}
}
