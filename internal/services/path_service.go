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

// PathServiceProvider defines the interface for path services.
type PathServiceProvider interface {
	SearchPaths(ctx context.Context, query, category string) ([]models.Path, error)
	GetPath(ctx context.Context, ref string) (models.Path, error)
	SeedPaths(ctx context.Context, catalog []models.Path) (int, error)
}

// PathService provides business logic for browsing the path catalog.
type PathService struct {
	paths repository.PathRepository
}

// NewPathService creates a new PathService.
func NewPathService(paths repository.PathRepository) *PathService {
	return &PathService{paths: paths}
}

// SearchPaths returns the paths whose name or description contains query and
// whose category matches. An empty category or "all" matches everything.
func (s *PathService) SearchPaths(ctx context.Context, query, category string) ([]models.Path, error) {
	all, err := s.paths.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Path, 0, len(all))
	for _, p := range all {
		if p.Matches(query, category) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// GetPath resolves ref as an ObjectID first and as a slug otherwise.
func (s *PathService) GetPath(ctx context.Context, ref string) (models.Path, error) {
	return resolvePath(ctx, s.paths, ref)
}

// SeedPaths upserts every path of the catalog by slug. Existing enrollments survive.
func (s *PathService) SeedPaths(ctx context.Context, catalog []models.Path) (int, error) {
	for i := range catalog {
		if err := s.paths.UpsertBySlug(ctx, &catalog[i]); err != nil {
			return i, fmt.Errorf("failed to seed path %q: %w", catalog[i].Slug, err)
		}
	}
	log.Info().Int("count", len(catalog)).Msg("Path catalog seeded")
	return len(catalog), nil
}

func resolvePath(ctx context.Context, paths repository.PathRepository, ref string) (models.Path, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Path{}, fmt.Errorf("path: %w", ErrNotFound)
	}
	if oid, err := bson.ObjectIDFromHex(ref); err == nil {
		p, err := paths.GetByID(ctx, oid)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return p, err
		}
	}
	return paths.GetBySlug(ctx, strings.ToLower(ref))
}
