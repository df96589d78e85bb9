package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is the opaque pagination state we encode/decode.
// ID + AtUnix (in micros) establish a stable cursor over (created_at, id).
type Cursor struct {
	ID     string `json:"id"`
	AtUnix int64  `json:"at,omitempty"`
}

// At returns the cursor timestamp.
func (c Cursor) At() time.Time { return time.UnixMicro(c.AtUnix).UTC() }

// IsZero reports whether this is the first-page cursor.
func (c Cursor) IsZero() bool { return c.ID == "" && c.AtUnix == 0 }

// From builds a cursor for a row.
func From(id string, at time.Time) Cursor {
	return Cursor{ID: id, AtUnix: at.UnixMicro()}
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token")
	}
	return c, nil
}

// ClampLimit bounds a caller supplied page size.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
