package lending

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a borrow record is not found.
	ErrNotFound = errors.New("borrow record not found")
	// ErrMalformedID is returned when an identifier does not parse as a UUID.
	ErrMalformedID = errors.New("malformed record id")
	// ErrCapExceeded is returned when the user already holds the maximum
	// number of active borrow records.
	ErrCapExceeded = errors.New("borrow cap exceeded")
	// ErrDuplicateBorrow is returned when the user already holds a record
	// for this book.
	ErrDuplicateBorrow = errors.New("book already borrowed")
)

// Record ties a borrowing user (by email) to a book (by the string form of
// its id). Anything else the caller sends, e.g. a due date, rides in Extra.
type Record struct {
	ID        string
	Email     string
	BookID    string
	Extra     map[string]any
	CreatedAt time.Time
}

// Fields flattens the record into a single map, extras first so the known
// fields always win on key collision.
func (rec Record) Fields() map[string]any {
	m := make(map[string]any, len(rec.Extra)+4)
	for k, v := range rec.Extra {
		m[k] = v
	}
	m["id"] = rec.ID
	m["email"] = rec.Email
	m["bookId"] = rec.BookID
	m["created_at"] = rec.CreatedAt
	return m
}

// MarshalJSON emits the flat document shape.
func (rec Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(rec.Fields())
}

// UnmarshalJSON accepts any JSON object. email and bookId are lifted into
// their typed fields; id and created_at are store-managed and dropped; the
// rest lands in Extra.
func (rec *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if v, ok := m["email"].(string); ok {
		rec.Email = v
		delete(m, "email")
	}
	if v, ok := m["bookId"].(string); ok {
		rec.BookID = v
		delete(m, "bookId")
	}
	delete(m, "id")
	delete(m, "created_at")

	if len(m) > 0 {
		rec.Extra = m
	} else {
		rec.Extra = nil
	}
	return nil
}
