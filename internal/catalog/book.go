package catalog

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a book is not found.
var ErrNotFound = errors.New("book not found")

// ErrMalformedID is returned when an identifier does not parse as a UUID.
var ErrMalformedID = errors.New("malformed book id")

// Book is an open document: Category and Rating are the only fields the
// query layer understands, everything else the caller supplies rides in
// Extra and is stored and echoed back verbatim.
type Book struct {
	ID        string
	Category  string
	Rating    *float64
	Extra     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Query defines filters and pagination for listing books.
type Query struct {
	Category string
	Limit    int
	Offset   int
}

// Fields flattens the book into a single map, extras first so the known
// fields always win on key collision.
func (b Book) Fields() map[string]any {
	m := make(map[string]any, len(b.Extra)+5)
	for k, v := range b.Extra {
		m[k] = v
	}
	m["id"] = b.ID
	if b.Category != "" {
		m["category"] = b.Category
	}
	if b.Rating != nil {
		m["rating"] = *b.Rating
	}
	m["created_at"] = b.CreatedAt
	m["updated_at"] = b.UpdatedAt
	return m
}

// MarshalJSON emits the flat document shape: extra fields sit at the top
// level beside id, category and rating.
func (b Book) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Fields())
}

// UnmarshalJSON accepts any JSON object. category (string) and rating
// (number) are lifted into their typed fields; id, created_at and
// updated_at are store-managed and dropped; the rest lands in Extra.
func (b *Book) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if v, ok := m["category"].(string); ok {
		b.Category = v
		delete(m, "category")
	}
	if v, ok := m["rating"].(float64); ok {
		b.Rating = &v
		delete(m, "rating")
	}
	delete(m, "id")
	delete(m, "created_at")
	delete(m, "updated_at")

	if len(m) > 0 {
		b.Extra = m
	} else {
		b.Extra = nil
	}
	return nil
}
