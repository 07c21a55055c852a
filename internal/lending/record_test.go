package lending

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUnmarshalJSON(t *testing.T) {
	t.Run("lifts email and bookId, keeps the rest", func(t *testing.T) {
		raw := `{"email":"reader@example.com","bookId":"b1","due":"2026-09-30"}`

		var rec Record
		require.NoError(t, json.Unmarshal([]byte(raw), &rec))

		assert.Equal(t, "reader@example.com", rec.Email)
		assert.Equal(t, "b1", rec.BookID)
		assert.Equal(t, "2026-09-30", rec.Extra["due"])
	})

	t.Run("drops store-managed keys", func(t *testing.T) {
		raw := `{"id":"caller-supplied","email":"a@b.com","bookId":"b1"}`

		var rec Record
		require.NoError(t, json.Unmarshal([]byte(raw), &rec))

		assert.Empty(t, rec.ID)
		assert.Nil(t, rec.Extra)
	})
}

func TestRecordMarshalJSON(t *testing.T) {
	rec := Record{
		ID:     "r1",
		Email:  "reader@example.com",
		BookID: "b1",
		Extra:  map[string]any{"due": "2026-09-30"},
	}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	assert.Equal(t, "r1", m["id"])
	assert.Equal(t, "reader@example.com", m["email"])
	assert.Equal(t, "b1", m["bookId"])
	assert.Equal(t, "2026-09-30", m["due"])
}

func TestRecordFields_KnownFieldsWin(t *testing.T) {
	rec := Record{
		ID:    "real-id",
		Email: "real@example.com",
		Extra: map[string]any{"id": "fake-id", "email": "fake@example.com"},
	}

	m := rec.Fields()
	assert.Equal(t, "real-id", m["id"])
	assert.Equal(t, "real@example.com", m["email"])
}
