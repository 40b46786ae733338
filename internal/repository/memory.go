package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/growthpath/growthpath-be/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore is an in-process implementation of every repository. It backs
// the test suites and the "memory" database driver used for local development.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[bson.ObjectID]models.User
	children map[bson.ObjectID]models.Child
	paths    map[bson.ObjectID]models.Path
	events   []models.Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[bson.ObjectID]models.User),
		children: make(map[bson.ObjectID]models.Child),
		paths:    make(map[bson.ObjectID]models.Path),
	}
}

// Users returns the store's UserRepository.
func (s *MemoryStore) Users() UserRepository { return (*memoryUsers)(s) }

// Children returns the store's ChildRepository.
func (s *MemoryStore) Children() ChildRepository { return (*memoryChildren)(s) }

// Paths returns the store's PathRepository.
func (s *MemoryStore) Paths() PathRepository { return (*memoryPaths)(s) }

// Events returns the store's EventRepository.
func (s *MemoryStore) Events() EventRepository { return (*memoryEvents)(s) }

func cloneIDs(ids []bson.ObjectID) []bson.ObjectID {
	if ids == nil {
		return []bson.ObjectID{}
	}
	return slices.Clone(ids)
}

func cloneUser(u models.User) models.User {
	u.Children = cloneIDs(u.Children)
	return u
}

func cloneChild(c models.Child) models.Child {
	c.Paths = cloneIDs(c.Paths)
	return c
}

func clonePath(p models.Path) models.Path {
	p.Children = cloneIDs(p.Children)
	p.Skills = slices.Clone(p.Skills)
	return p
}

func removeID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	return slices.DeleteFunc(ids, func(x bson.ObjectID) bool { return x == id })
}

func addUniqueID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

type memoryUsers MemoryStore

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Children = cloneIDs(user.Children)
	if err := checkDocument(user); err != nil {
		return err
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return fmt.Errorf("user: %w", ErrDuplicate)
		}
	}
	r.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id bson.ObjectID) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = models.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
}

func (r *memoryUsers) UpdateProfile(_ context.Context, id bson.ObjectID, update ProfileUpdate) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	email := models.NormalizeEmail(update.Email)
	for otherID, other := range r.users {
		if otherID != id && other.Email == email {
			return models.User{}, fmt.Errorf("user: %w", ErrDuplicate)
		}
	}

	u.Name = update.Name
	u.FamilyName = update.FamilyName
	u.Email = email
	u.UpdatedAt = time.Now().UTC()
	if err := checkDocument(&u); err != nil {
		return models.User{}, err
	}
	r.users[id] = u
	return cloneUser(u), nil
}

func (r *memoryUsers) UpdatePassword(_ context.Context, id bson.ObjectID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *memoryUsers) AddChild(_ context.Context, userID, childID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	u.Children = append(u.Children, childID)
	r.users[userID] = u
	return nil
}

func (r *memoryUsers) RemoveChild(_ context.Context, userID, childID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	u.Children = removeID(u.Children, childID)
	r.users[userID] = u
	return nil
}

type memoryChildren MemoryStore

func (r *memoryChildren) owned(userID, childID bson.ObjectID) (models.Child, bool) {
	c, ok := r.children[childID]
	if !ok || c.UserID != userID {
		return models.Child{}, false
	}
	return c, true
}

func (r *memoryChildren) Create(_ context.Context, child *models.Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	child.ID = bson.NewObjectID()
	child.CreatedAt = now
	child.UpdatedAt = now
	child.Paths = cloneIDs(child.Paths)
	if err := checkDocument(child); err != nil {
		return err
	}
	r.children[child.ID] = cloneChild(*child)
	return nil
}

func (r *memoryChildren) Get(_ context.Context, userID, childID bson.ObjectID) (models.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.owned(userID, childID)
	if !ok {
		return models.Child{}, fmt.Errorf("child: %w", ErrNotFound)
	}
	return cloneChild(c), nil
}

func (r *memoryChildren) List(_ context.Context, userID bson.ObjectID) ([]models.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Child
	for _, c := range r.children {
		if c.UserID == userID {
			out = append(out, cloneChild(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryChildren) Update(_ context.Context, userID, childID bson.ObjectID, update ChildUpdate) (models.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.owned(userID, childID)
	if !ok {
		return models.Child{}, fmt.Errorf("child: %w", ErrNotFound)
	}
	c.Name = update.Name
	if update.Gender != "" {
		c.Gender = update.Gender
	}
	c.Birthday = update.Birthday
	c.UpdatedAt = time.Now().UTC()
	if err := checkDocument(&c); err != nil {
		return models.Child{}, err
	}
	r.children[childID] = c
	return cloneChild(c), nil
}

func (r *memoryChildren) Delete(_ context.Context, userID, childID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owned(userID, childID); !ok {
		return fmt.Errorf("child: %w", ErrNotFound)
	}
	delete(r.children, childID)
	return nil
}

func (r *memoryChildren) AddPath(_ context.Context, userID, childID, pathID bson.ObjectID) error {
	return r.updatePaths(userID, childID, func(ids []bson.ObjectID) []bson.ObjectID { return addUniqueID(ids, pathID) })
}

func (r *memoryChildren) RemovePath(_ context.Context, userID, childID, pathID bson.ObjectID) error {
	return r.updatePaths(userID, childID, func(ids []bson.ObjectID) []bson.ObjectID { return removeID(ids, pathID) })
}

func (r *memoryChildren) updatePaths(userID, childID bson.ObjectID, fn func([]bson.ObjectID) []bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.owned(userID, childID)
	if !ok {
		return fmt.Errorf("child: %w", ErrNotFound)
	}
	c.Paths = fn(c.Paths)
	r.children[childID] = c
	return nil
}

type memoryPaths MemoryStore

func (r *memoryPaths) sorted(filter func(models.Path) bool) []models.Path {
	out := []models.Path{}
	for _, p := range r.paths {
		if filter(p) {
			out = append(out, clonePath(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *memoryPaths) List(_ context.Context) ([]models.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(models.Path) bool { return true }), nil
}

func (r *memoryPaths) ListByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(p models.Path) bool { return slices.Contains(ids, p.ID) }), nil
}

func (r *memoryPaths) GetByID(_ context.Context, id bson.ObjectID) (models.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.paths[id]
	if !ok {
		return models.Path{}, fmt.Errorf("path: %w", ErrNotFound)
	}
	return clonePath(p), nil
}

func (r *memoryPaths) GetBySlug(_ context.Context, slug string) (models.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.paths {
		if p.Slug == slug {
			return clonePath(p), nil
		}
	}
	return models.Path{}, fmt.Errorf("path: %w", ErrNotFound)
}

func (r *memoryPaths) UpsertBySlug(_ context.Context, path *models.Path) error {
	if err := checkDocument(path); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range r.paths {
		if existing.Slug == path.Slug {
			existing.Name = path.Name
			existing.Description = path.Description
			existing.Category = path.Category
			existing.Skills = slices.Clone(path.Skills)
			existing.UpdatedAt = now
			r.paths[id] = existing
			*path = clonePath(existing)
			return nil
		}
	}

	path.ID = bson.NewObjectID()
	path.Children = []bson.ObjectID{}
	path.CreatedAt = now
	path.UpdatedAt = now
	r.paths[path.ID] = clonePath(*path)
	return nil
}

func (r *memoryPaths) AddChild(_ context.Context, pathID, childID bson.ObjectID) error {
	return r.updateChildren(pathID, func(ids []bson.ObjectID) []bson.ObjectID { return addUniqueID(ids, childID) })
}

func (r *memoryPaths) RemoveChild(_ context.Context, pathID, childID bson.ObjectID) error {
	return r.updateChildren(pathID, func(ids []bson.ObjectID) []bson.ObjectID { return removeID(ids, childID) })
}

func (r *memoryPaths) RemoveChildFromAll(_ context.Context, childID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.paths {
		if slices.Contains(p.Children, childID) {
			p.Children = removeID(p.Children, childID)
			r.paths[id] = p
		}
	}
	return nil
}

func (r *memoryPaths) updateChildren(pathID bson.ObjectID, fn func([]bson.ObjectID) []bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.paths[pathID]
	if !ok {
		return fmt.Errorf("path: %w", ErrNotFound)
	}
	p.Children = fn(p.Children)
	r.paths[pathID] = p
	return nil
}

type memoryEvents MemoryStore

func (r *memoryEvents) Create(_ context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = bson.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *memoryEvents) Recent(_ context.Context, userID bson.ObjectID, limit int) ([]models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Event{}
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].UserID == userID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *memoryEvents) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	var removed int64
	for _, e := range r.events {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return removed, nil
}
