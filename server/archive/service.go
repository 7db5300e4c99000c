package archive

import (
	"context"
	"path/filepath"
)

const defaultLimit = 50

type Service struct {
	repo *Repository
}

func (s *Service) Archive(ctx context.Context, e *Entity) error {
	if e.Title == "" && e.Path != "" {
		e.Title = filepath.Base(e.Path)
	}
	return s.repo.Archive(ctx, e)
}

func (s *Service) List(ctx context.Context, limit int) ([]Entity, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
