package catalog

import (
	"context"
)

// Repository is the catalog's persistence port.
type Repository interface {
	List(ctx context.Context, q Query) ([]Book, int, error)
	Get(ctx context.Context, id string) (Book, error)
	GetByIDs(ctx context.Context, ids []string) ([]Book, error)
	TopRated(ctx context.Context, n int) ([]Book, error)
	Insert(ctx context.Context, b Book) (Book, error)
	Update(ctx context.Context, id string, patch map[string]any) (int64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	return s.repo.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	return s.repo.Get(ctx, id)
}

// GetByIDs resolves a set of book ids in one query. Unknown and malformed
// ids are simply absent from the result; callers that need inner-join
// semantics get them for free.
func (s *Service) GetByIDs(ctx context.Context, ids []string) ([]Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.GetByIDs(ctx, ids)
}

func (s *Service) TopRated(ctx context.Context, n int) ([]Book, error) {
	return s.repo.TopRated(ctx, n)
}

func (s *Service) Insert(ctx context.Context, b Book) (Book, error) {
	return s.repo.Insert(ctx, b)
}

func (s *Service) Update(ctx context.Context, id string, patch map[string]any) (int64, error) {
	return s.repo.Update(ctx, id, patch)
}
