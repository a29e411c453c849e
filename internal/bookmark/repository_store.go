package bookmark

import (
	"context"

	"github.com/pulsepipe/ingest/internal/bookmark/normalize"
	"github.com/pulsepipe/ingest/internal/tracking"
)

// RepositoryStore is a Store backed by the shared tracking.Repository,
// for deployments that want bookmark state to live in the same database
// as everything else instead of a dedicated sqlite file.
type RepositoryStore struct {
	repo *tracking.Repository
}

// NewRepositoryStore wraps an already-connected tracking.Repository.
func NewRepositoryStore(repo *tracking.Repository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) IsProcessed(ctx context.Context, path string) (bool, error) {
	return s.repo.IsPathBookmarked(ctx, normalize.Path(path))
}

func (s *RepositoryStore) MarkProcessed(ctx context.Context, path, status string) error {
	if status == "" {
		status = "processed"
	}
	return s.repo.MarkPathBookmarked(ctx, normalize.Path(path), status)
}

func (s *RepositoryStore) GetAll(ctx context.Context) ([]string, error) {
	return s.repo.AllBookmarkedPaths(ctx)
}

func (s *RepositoryStore) ClearAll(ctx context.Context) (int, error) {
	n, err := s.repo.ClearBookmarks(ctx)
	return int(n), err
}

// Close is a no-op: the Repository's lifecycle is owned by its caller.
func (s *RepositoryStore) Close() error { return nil }

var _ Store = (*RepositoryStore)(nil)
