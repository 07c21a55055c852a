package lending

import (
	"context"
	"errors"
	"testing"

	"booklend/internal/catalog"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MockRepository, *MockBookFinder) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockRepository(ctrl)
	mockBooks := NewMockBookFinder(ctrl)
	return NewService(mockRepo, mockBooks), mockRepo, mockBooks
}

func TestService_Borrow(t *testing.T) {
	ctx := context.Background()
	const email = "reader@example.com"
	const bookID = "11111111-2222-3333-4444-555555555555"

	t.Run("success under the cap", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().CountByEmail(ctx, email).Return(2, nil)
		mockRepo.EXPECT().FindByEmailAndBook(ctx, email, bookID).Return(Record{}, ErrNotFound)
		mockRepo.EXPECT().
			Insert(ctx, Record{Email: email, BookID: bookID, Extra: map[string]any{"due": "2026-09-30"}}).
			DoAndReturn(func(_ context.Context, rec Record) (Record, error) {
				rec.ID = "new-record-id"
				return rec, nil
			})

		rec, err := svc.Borrow(ctx, email, bookID, map[string]any{"due": "2026-09-30"})
		require.NoError(t, err)
		assert.Equal(t, "new-record-id", rec.ID)
		assert.Equal(t, email, rec.Email)
		assert.Equal(t, bookID, rec.BookID)
	})

	t.Run("cap exceeded creates nothing", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().CountByEmail(ctx, email).Return(MaxActiveBorrows, nil)

		_, err := svc.Borrow(ctx, email, bookID, nil)
		assert.ErrorIs(t, err, ErrCapExceeded)
	})

	t.Run("duplicate borrow creates nothing", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().CountByEmail(ctx, email).Return(1, nil)
		mockRepo.EXPECT().
			FindByEmailAndBook(ctx, email, bookID).
			Return(Record{ID: "existing", Email: email, BookID: bookID}, nil)

		_, err := svc.Borrow(ctx, email, bookID, nil)
		assert.ErrorIs(t, err, ErrDuplicateBorrow)
	})

	t.Run("cap rejection from the insert surfaces after clean pre-checks", func(t *testing.T) {
		// A concurrent borrow can land between the count check and the
		// insert; the store then rejects the insert and that rejection is
		// what the caller sees.
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().CountByEmail(ctx, email).Return(2, nil)
		mockRepo.EXPECT().FindByEmailAndBook(ctx, email, bookID).Return(Record{}, ErrNotFound)
		mockRepo.EXPECT().
			Insert(ctx, Record{Email: email, BookID: bookID}).
			Return(Record{}, ErrCapExceeded)

		_, err := svc.Borrow(ctx, email, bookID, nil)
		assert.ErrorIs(t, err, ErrCapExceeded)
	})

	t.Run("duplicate rejection from the insert surfaces after clean pre-checks", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().CountByEmail(ctx, email).Return(0, nil)
		mockRepo.EXPECT().FindByEmailAndBook(ctx, email, bookID).Return(Record{}, ErrNotFound)
		mockRepo.EXPECT().
			Insert(ctx, Record{Email: email, BookID: bookID}).
			Return(Record{}, ErrDuplicateBorrow)

		_, err := svc.Borrow(ctx, email, bookID, nil)
		assert.ErrorIs(t, err, ErrDuplicateBorrow)
	})

	t.Run("count failure propagates", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().CountByEmail(ctx, email).Return(0, errors.New("db error"))

		_, err := svc.Borrow(ctx, email, bookID, nil)
		assert.EqualError(t, err, "db error")
	})

	t.Run("duplicate lookup failure propagates", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().CountByEmail(ctx, email).Return(0, nil)
		mockRepo.EXPECT().FindByEmailAndBook(ctx, email, bookID).Return(Record{}, errors.New("db error"))

		_, err := svc.Borrow(ctx, email, bookID, nil)
		assert.EqualError(t, err, "db error")
	})
}

func TestService_ListBorrowedForUser(t *testing.T) {
	ctx := context.Background()
	const email = "reader@example.com"

	t.Run("inner join drops dangling records", func(t *testing.T) {
		svc, mockRepo, mockBooks := newTestService(t)
		mockRepo.EXPECT().ListByEmail(ctx, email).Return([]Record{
			{ID: "r1", Email: email, BookID: "b1"},
			{ID: "r2", Email: email, BookID: "gone"},
		}, nil)
		mockBooks.EXPECT().
			GetByIDs(ctx, []string{"b1", "gone"}).
			Return([]catalog.Book{{ID: "b1", Category: "fiction"}}, nil)

		views, err := svc.ListBorrowedForUser(ctx, email)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "r1", views[0]["id"])
		assert.Equal(t, "b1", views[0]["bookId"])
		assert.Equal(t, "fiction", views[0]["category"])
	})

	t.Run("record fields win over book fields", func(t *testing.T) {
		svc, mockRepo, mockBooks := newTestService(t)
		mockRepo.EXPECT().ListByEmail(ctx, email).Return([]Record{
			{ID: "r1", Email: email, BookID: "b1", Extra: map[string]any{"note": "from record"}},
		}, nil)
		mockBooks.EXPECT().GetByIDs(ctx, []string{"b1"}).Return([]catalog.Book{
			{ID: "b1", Extra: map[string]any{"note": "from book", "title": "Dune"}},
		}, nil)

		views, err := svc.ListBorrowedForUser(ctx, email)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "from record", views[0]["note"])
		assert.Equal(t, "Dune", views[0]["title"])
		assert.Equal(t, email, views[0]["email"])
		// The merged view carries the record's id, not the book's.
		assert.Equal(t, "r1", views[0]["id"])
	})

	t.Run("no records means no catalog lookup", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		mockRepo.EXPECT().ListByEmail(ctx, email).Return(nil, nil)

		views, err := svc.ListBorrowedForUser(ctx, email)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestService_Return(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent delete", func(t *testing.T) {
		svc, mockRepo, _ := newTestService(t)
		id := "11111111-2222-3333-4444-555555555555"
		gomock.InOrder(
			mockRepo.EXPECT().DeleteByID(ctx, id).Return(int64(1), nil),
			mockRepo.EXPECT().DeleteByID(ctx, id).Return(int64(0), nil),
		)

		deleted, err := svc.Return(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		deleted, err = svc.Return(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted)
	})
}
