package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"booklend/internal/httpx"
)

const (
	defaultPageLimit = 5
	topRatedCount    = 10
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// List handles GET /allBooks with optional category, page and limit params.
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}

	q := Query{
		Category: query.Get("category"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	books, total, err := h.svc.List(r.Context(), q)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Server error", nil)
		return
	}
	if books == nil {
		books = []Book{}
	}

	httpx.JSONSuccess(w, r, books, map[string]any{
		"current_page": page,
		"limit":        limit,
		"total_books":  total,
		"total_pages":  (total + limit - 1) / limit,
	})
}

// GetByID handles GET /allBooks/{id}. A malformed id and an absent record
// surface as the same generic failure; the split lives only below the
// repository boundary.
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	book, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch book", nil)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

// TopRated handles GET /topRatingBooks.
func (h *HTTPHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.TopRated(r.Context(), topRatedCount)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Server error", nil)
		return
	}
	if books == nil {
		books = []Book{}
	}
	httpx.JSONSuccess(w, r, books, nil)
}

// Insert handles POST /addBooks. Any JSON object is accepted and persisted
// verbatim; the route is gated by the token middleware, not here.
func (h *HTTPHandler) Insert(w http.ResponseWriter, r *http.Request) {
	var book Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}

	created, err := h.svc.Insert(r.Context(), book)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add book", nil)
		return
	}
	httpx.JSONSuccessCreated(w, r, created)
}

// Update handles PATCH /updateBook/{id} as a partial-field merge.
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}

	updated, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update book", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]any{"updated": updated}, nil)
}
