package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/growthpath/growthpath-be/internal/models"
	"github.com/growthpath/growthpath-be/internal/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ChildServiceProvider defines the interface for child profile services.
// Every method is scoped to the calling user; another user's child is
// reported as ErrNotFound.
type ChildServiceProvider interface {
	ListChildren(ctx context.Context, userID string) ([]models.Child, error)
	CreateChild(ctx context.Context, userID string, in ChildInput) (models.Child, error)
	GetChild(ctx context.Context, userID, childID string) (models.Child, error)
	UpdateChild(ctx context.Context, userID, childID string, in ChildInput) (models.Child, error)
	DeleteChild(ctx context.Context, userID, childID string) error
	GetChildPaths(ctx context.Context, userID, childID string) ([]models.Path, error)
	GetChildSkills(ctx context.Context, userID, childID string) ([]models.ChildSkill, error)
	EnrollChild(ctx context.Context, userID, childID, pathRef string) (models.Path, error)
	UnenrollChild(ctx context.Context, userID, childID, pathRef string) error
}

// ChildService provides business logic for child profiles and path enrollment.
type ChildService struct {
	users    repository.UserRepository
	children repository.ChildRepository
	paths    repository.PathRepository
	events   EventServiceProvider
	now      func() time.Time
}

// NewChildService creates a new ChildService.
func NewChildService(users repository.UserRepository, children repository.ChildRepository, paths repository.PathRepository, events EventServiceProvider) *ChildService {
	return &ChildService{users: users, children: children, paths: paths, events: events, now: time.Now}
}

// ListChildren returns the user's children in the order of the user's child list.
func (s *ChildService) ListChildren(ctx context.Context, userID string) ([]models.Child, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	children, err := s.children.List(ctx, uid)
	if err != nil {
		return nil, err
	}

	position := make(map[bson.ObjectID]int, len(user.Children))
	for i, id := range user.Children {
		position[id] = i
	}
	// Children missing from the list (a racing delete or insert) sort last.
	slices.SortStableFunc(children, func(a, b models.Child) int {
		pa, okA := position[a.ID]
		pb, okB := position[b.ID]
		switch {
		case okA && okB:
			return pa - pb
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	if children == nil {
		children = []models.Child{}
	}
	return children, nil
}

// CreateChild stores a new child and appends it to the owner's child list.
func (s *ChildService) CreateChild(ctx context.Context, userID string, in ChildInput) (models.Child, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return models.Child{}, err
	}
	return s.createChild(ctx, uid, in)
}

func (s *ChildService) createChild(ctx context.Context, uid bson.ObjectID, in ChildInput) (models.Child, error) {
	name, gender, birthday, err := in.parse(s.now())
	if err != nil {
		return models.Child{}, err
	}
	if gender == "" {
		gender = models.GenderOther
	}

	child := models.Child{
		Name:     name,
		Gender:   gender,
		Birthday: birthday,
		UserID:   uid,
		Paths:    []bson.ObjectID{},
	}
	if err := s.children.Create(ctx, &child); err != nil {
		return models.Child{}, fmt.Errorf("failed to create child: %w", err)
	}
	if err := s.users.AddChild(ctx, uid, child.ID); err != nil {
		if delErr := s.children.Delete(ctx, uid, child.ID); delErr != nil {
			log.Error().Err(delErr).Str("child_id", child.ID.Hex()).Msg("Failed to remove orphaned child")
		}
		return models.Child{}, fmt.Errorf("failed to attach child to user: %w", err)
	}

	recordEvent(ctx, s.events, uid, &child.ID, models.EventChildCreate, fmt.Sprintf("Added child %s", child.Name))
	return child, nil
}

// GetChild returns one of the user's children.
func (s *ChildService) GetChild(ctx context.Context, userID, childID string) (models.Child, error) {
	uid, cid, err := parseOwnedIDs(userID, childID)
	if err != nil {
		return models.Child{}, err
	}
	return s.children.Get(ctx, uid, cid)
}

// UpdateChild replaces the name and birthday of one of the user's children.
// The gender is replaced only when the input carries one.
func (s *ChildService) UpdateChild(ctx context.Context, userID, childID string, in ChildInput) (models.Child, error) {
	uid, cid, err := parseOwnedIDs(userID, childID)
	if err != nil {
		return models.Child{}, err
	}
	name, gender, birthday, err := in.parse(s.now())
	if err != nil {
		return models.Child{}, err
	}

	child, err := s.children.Update(ctx, uid, cid, repository.ChildUpdate{Name: name, Gender: gender, Birthday: birthday})
	if err != nil {
		return models.Child{}, err
	}
	recordEvent(ctx, s.events, uid, &child.ID, models.EventChildUpdate, fmt.Sprintf("Updated child %s", child.Name))
	return child, nil
}

// DeleteChild removes the child and detaches it from its owner and from every path.
func (s *ChildService) DeleteChild(ctx context.Context, userID, childID string) error {
	uid, cid, err := parseOwnedIDs(userID, childID)
	if err != nil {
		return err
	}
	child, err := s.children.Get(ctx, uid, cid)
	if err != nil {
		return err
	}

	if err := s.children.Delete(ctx, uid, cid); err != nil {
		return err
	}
	if err := s.users.RemoveChild(ctx, uid, cid); err != nil {
		return fmt.Errorf("failed to detach child from user: %w", err)
	}
	if err := s.paths.RemoveChildFromAll(ctx, cid); err != nil {
		return err
	}

	recordEvent(ctx, s.events, uid, nil, models.EventChildDelete, fmt.Sprintf("Removed child %s", child.Name))
	return nil
}

// GetChildPaths returns the paths the child is enrolled in.
func (s *ChildService) GetChildPaths(ctx context.Context, userID, childID string) ([]models.Path, error) {
	child, err := s.GetChild(ctx, userID, childID)
	if err != nil {
		return nil, err
	}
	return s.paths.ListByIDs(ctx, child.Paths)
}

// GetChildSkills returns the skills of the child's enrolled paths that suit the
// child's current age.
func (s *ChildService) GetChildSkills(ctx context.Context, userID, childID string) ([]models.ChildSkill, error) {
	child, err := s.GetChild(ctx, userID, childID)
	if err != nil {
		return nil, err
	}
	paths, err := s.paths.ListByIDs(ctx, child.Paths)
	if err != nil {
		return nil, err
	}

	age := child.AgeAt(s.now())
	skills := []models.ChildSkill{}
	for _, p := range paths {
		for _, skill := range p.SkillsForAge(age) {
			skills = append(skills, models.ChildSkill{PathID: p.ID, PathName: p.Name, Skill: skill})
		}
	}
	return skills, nil
}

// EnrollChild adds the child to a path. Enrolling twice is a no-op.
func (s *ChildService) EnrollChild(ctx context.Context, userID, childID, pathRef string) (models.Path, error) {
	child, path, err := s.childAndPath(ctx, userID, childID, pathRef)
	if err != nil {
		return models.Path{}, err
	}
	alreadyEnrolled := slices.Contains(child.Paths, path.ID)

	if err := s.paths.AddChild(ctx, path.ID, child.ID); err != nil {
		return models.Path{}, err
	}
	if err := s.children.AddPath(ctx, child.UserID, child.ID, path.ID); err != nil {
		return models.Path{}, err
	}

	if !alreadyEnrolled {
		recordEvent(ctx, s.events, child.UserID, &child.ID, models.EventPathEnroll,
			fmt.Sprintf("Enrolled %s in %s", child.Name, path.Name))
	}
	return path, nil
}

// UnenrollChild removes the child from a path.
func (s *ChildService) UnenrollChild(ctx context.Context, userID, childID, pathRef string) error {
	child, path, err := s.childAndPath(ctx, userID, childID, pathRef)
	if err != nil {
		return err
	}
	wasEnrolled := slices.Contains(child.Paths, path.ID)

	if err := s.paths.RemoveChild(ctx, path.ID, child.ID); err != nil {
		return err
	}
	if err := s.children.RemovePath(ctx, child.UserID, child.ID, path.ID); err != nil {
		return err
	}

	if wasEnrolled {
		recordEvent(ctx, s.events, child.UserID, &child.ID, models.EventPathUnenroll,
			fmt.Sprintf("Removed %s from %s", child.Name, path.Name))
	}
	return nil
}

func (s *ChildService) childAndPath(ctx context.Context, userID, childID, pathRef string) (models.Child, models.Path, error) {
	child, err := s.GetChild(ctx, userID, childID)
	if err != nil {
		return models.Child{}, models.Path{}, err
	}
	path, err := resolvePath(ctx, s.paths, pathRef)
	if err != nil {
		return models.Child{}, models.Path{}, err
	}
	return child, path, nil
}

func parseOwnedIDs(userID, childID string) (bson.ObjectID, bson.ObjectID, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return bson.ObjectID{}, bson.ObjectID{}, err
	}
	cid, err := parseID("child", childID)
	if err != nil {
		return bson.ObjectID{}, bson.ObjectID{}, err
	}
	return uid, cid, nil
}
