package lending

import (
	"encoding/json"
	"errors"
	"net/http"

	"booklend/internal/httpx"
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// ListAll handles GET /borrowedBooksInfo.
func (h *HTTPHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListAll(r.Context())
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch borrowed books info", nil)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.JSONSuccess(w, r, records, nil)
}

// ListForUser handles GET /borrowedBooks/{email}.
func (h *HTTPHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")

	views, err := h.svc.ListBorrowedForUser(r.Context(), email)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch borrowed books", nil)
		return
	}
	if views == nil {
		views = []map[string]any{}
	}
	httpx.JSONSuccess(w, r, views, nil)
}

type borrowRequest struct {
	Email  string `validate:"required,email"`
	BookID string `validate:"required"`
}

// Borrow handles POST /addBorrowedBookInfo. The route itself is
// unauthenticated; the cap and duplicate invariants are the only gate.
func (h *HTTPHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}

	req := borrowRequest{Email: rec.Email, BookID: rec.BookID}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid borrow request", details)
		return
	}

	created, err := h.svc.Borrow(r.Context(), rec.Email, rec.BookID, rec.Extra)
	if err != nil {
		switch {
		case errors.Is(err, ErrCapExceeded):
			httpx.JSONError(w, r, http.StatusForbidden, "BORROW_CAP_EXCEEDED", "You can't borrow more than 3 books!", nil)
		case errors.Is(err, ErrDuplicateBorrow):
			httpx.JSONError(w, r, http.StatusBadRequest, "DUPLICATE_BORROW", "You have already borrowed this book.", nil)
		default:
			httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to borrow book", nil)
		}
		return
	}
	httpx.JSONSuccessCreated(w, r, created)
}

// Return handles DELETE /deleteBorrowedBook/{id}. Deleting an absent record
// reports zero deleted, not an error.
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.svc.Return(r.Context(), id)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete borrowed book", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]any{"deleted": deleted}, nil)
}
