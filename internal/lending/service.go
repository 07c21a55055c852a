package lending

import (
	"context"
	"errors"

	"booklend/internal/catalog"
)

// MaxActiveBorrows is the system-wide cap on concurrent borrow records per
// user email.
const MaxActiveBorrows = 3

// Repository is the lending persistence port.
type Repository interface {
	ListAll(ctx context.Context) ([]Record, error)
	ListByEmail(ctx context.Context, email string) ([]Record, error)
	CountByEmail(ctx context.Context, email string) (int, error)
	FindByEmailAndBook(ctx context.Context, email, bookID string) (Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
}

// BookFinder is the catalog read path the borrowed-view join depends on.
type BookFinder interface {
	GetByIDs(ctx context.Context, ids []string) ([]catalog.Book, error)
}

type Service struct {
	repo  Repository
	books BookFinder
}

func NewService(repo Repository, books BookFinder) *Service {
	return &Service{repo: repo, books: books}
}

// ListAll returns every borrow record, unfiltered. Administrative
// visibility, not scoped to a user.
func (s *Service) ListAll(ctx context.Context) ([]Record, error) {
	return s.repo.ListAll(ctx)
}

// ListBorrowedForUser resolves all of a user's borrow records against the
// catalog in one batch lookup and merges book fields under record fields.
// Records whose book no longer exists are dropped: the view is an inner
// join, never persisted.
func (s *Service) ListBorrowedForUser(ctx context.Context, email string) ([]map[string]any, error) {
	records, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.BookID)
	}
	books, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]catalog.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	views := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		book, ok := byID[rec.BookID]
		if !ok {
			continue
		}
		view := book.Fields()
		for k, v := range rec.Fields() {
			view[k] = v
		}
		views = append(views, view)
	}
	return views, nil
}

// Borrow runs the ordered invariant checks, then inserts. The checks give
// the caller a precise rejection but are advisory only; the store's Insert
// is the final authority, so when concurrent requests get past the checks
// the loser still surfaces ErrCapExceeded or ErrDuplicateBorrow from the
// insert itself.
func (s *Service) Borrow(ctx context.Context, email, bookID string, extra map[string]any) (Record, error) {
	count, err := s.repo.CountByEmail(ctx, email)
	if err != nil {
		return Record{}, err
	}
	if count >= MaxActiveBorrows {
		return Record{}, ErrCapExceeded
	}

	_, err = s.repo.FindByEmailAndBook(ctx, email, bookID)
	if err == nil {
		return Record{}, ErrDuplicateBorrow
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	return s.repo.Insert(ctx, Record{Email: email, BookID: bookID, Extra: extra})
}

// Return deletes a borrow record by id. Deleting a record that no longer
// exists succeeds and reports zero affected.
func (s *Service) Return(ctx context.Context, id string) (int64, error) {
	return s.repo.DeleteByID(ctx, id)
}
