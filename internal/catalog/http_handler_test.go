package catalog

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"booklend/internal/testutil"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*HTTPHandler, *MockRepository) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockRepository(ctrl)
	return NewHTTPHandler(NewService(mockRepo)), mockRepo
}

func TestHTTPHandler_List(t *testing.T) {
	t.Run("defaults to page 1 limit 5", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			List(gomock.Any(), Query{Limit: 5, Offset: 0}).
			Return([]Book{}, 0, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/allBooks", nil))

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, resp.Code)
		meta := resp.Body["meta"].(map[string]any)
		assert.Equal(t, float64(1), meta["current_page"])
		assert.Equal(t, float64(0), meta["total_books"])
		assert.Equal(t, float64(0), meta["total_pages"])
	})

	t.Run("category filter and pagination meta", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			List(gomock.Any(), Query{Category: "fiction", Limit: 1, Offset: 0}).
			Return([]Book{{ID: "b1", Category: "fiction"}}, 2, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/allBooks?category=fiction&page=1&limit=1", nil))

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, resp.Code)

		data := resp.Body["data"].([]any)
		assert.Len(t, data, 1)
		meta := resp.Body["meta"].(map[string]any)
		assert.Equal(t, float64(2), meta["total_books"])
		assert.Equal(t, float64(2), meta["total_pages"])
		assert.Equal(t, float64(1), meta["current_page"])
	})

	t.Run("page beyond the last returns empty data", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			List(gomock.Any(), Query{Limit: 5, Offset: 45}).
			Return(nil, 7, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/allBooks?page=10", nil))

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, resp.Body["data"])
		meta := resp.Body["meta"].(map[string]any)
		assert.Equal(t, float64(7), meta["total_books"])
		assert.Equal(t, float64(2), meta["total_pages"])
	})

	t.Run("store error", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			List(gomock.Any(), gomock.Any()).
			Return(nil, 0, errors.New("db error"))

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/allBooks", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_GetByID(t *testing.T) {
	getByID := func(handler *HTTPHandler, id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/allBooks/"+id, nil)
		r.SetPathValue("id", id)
		handler.GetByID(w, r)
		return w
	}

	t.Run("success", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			Get(gomock.Any(), "11111111-2222-3333-4444-555555555555").
			Return(Book{ID: "11111111-2222-3333-4444-555555555555"}, nil)

		w := getByID(handler, "11111111-2222-3333-4444-555555555555")

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, resp.Code)
		data := resp.Body["data"].(map[string]any)
		assert.Equal(t, "11111111-2222-3333-4444-555555555555", data["id"])
	})

	// Absent and malformed ids collapse into the same generic failure at
	// the boundary.
	t.Run("not found", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(Book{}, ErrNotFound)

		w := getByID(handler, "11111111-2222-3333-4444-555555555555")

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		errBody := resp.Body["error"].(map[string]any)
		assert.Equal(t, "Failed to fetch book", errBody["message"])
	})

	t.Run("malformed id", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			Get(gomock.Any(), "not-a-uuid").
			Return(Book{}, ErrMalformedID)

		w := getByID(handler, "not-a-uuid")

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		errBody := resp.Body["error"].(map[string]any)
		assert.Equal(t, "Failed to fetch book", errBody["message"])
	})
}

func TestHTTPHandler_TopRated(t *testing.T) {
	t.Run("asks for ten books", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			TopRated(gomock.Any(), 10).
			Return([]Book{{ID: "b1"}, {ID: "b2"}}, nil)

		w := httptest.NewRecorder()
		handler.TopRated(w, httptest.NewRequest(http.MethodGet, "/topRatingBooks", nil))

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, resp.Body["data"], 2)
	})

	t.Run("store error", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			TopRated(gomock.Any(), 10).
			Return(nil, errors.New("db error"))

		w := httptest.NewRecorder()
		handler.TopRated(w, httptest.NewRequest(http.MethodGet, "/topRatingBooks", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Insert(t *testing.T) {
	t.Run("accepts an arbitrary document", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, b Book) (Book, error) {
				assert.Equal(t, "fiction", b.Category)
				assert.Equal(t, "Dune", b.Extra["title"])
				b.ID = "new-id"
				return b, nil
			})

		w := httptest.NewRecorder()
		r := testutil.NewRequest(http.MethodPost, "/addBooks", map[string]any{
			"title":    "Dune",
			"category": "fiction",
			"rating":   4.5,
		})
		handler.Insert(w, r)

		resp := testutil.RecordHTTPResponse(w)
		require.Equal(t, http.StatusCreated, resp.Code)
		data := resp.Body["data"].(map[string]any)
		assert.Equal(t, "new-id", data["id"])
		assert.Equal(t, "Dune", data["title"])
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/addBooks", nil)
		handler.Insert(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_Update(t *testing.T) {
	const id = "11111111-2222-3333-4444-555555555555"

	t.Run("partial merge", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			Update(gomock.Any(), id, map[string]any{"rating": 3.0}).
			Return(int64(1), nil)

		w := httptest.NewRecorder()
		r := testutil.NewRequest(http.MethodPatch, "/updateBook/"+id, map[string]any{"rating": 3.0})
		r.SetPathValue("id", id)
		handler.Update(w, r)

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, resp.Code)
		data := resp.Body["data"].(map[string]any)
		assert.Equal(t, float64(1), data["updated"])
	})

	t.Run("malformed id surfaces as generic failure", func(t *testing.T) {
		handler, mockRepo := newTestHandler(t)
		mockRepo.EXPECT().
			Update(gomock.Any(), "nope", gomock.Any()).
			Return(int64(0), ErrMalformedID)

		w := httptest.NewRecorder()
		r := testutil.NewRequest(http.MethodPatch, "/updateBook/nope", map[string]any{"rating": 3.0})
		r.SetPathValue("id", "nope")
		handler.Update(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
