package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// DefaultLimit is applied when a caller asks for a non-positive page size.
const DefaultLimit = 20

// MaxLimit caps page sizes.
const MaxLimit = 200

// Cursor identifies the last row of a page in (created_at, id) keyset order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeToken creates a base64 encoded token from a row's creation time and id.
func EncodeToken(c Cursor) string {
	tokenStr := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(timeFormat), c.ID)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}
	createdAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}
	return Cursor{CreatedAt: createdAt, ID: parts[1]}, nil
}

// NormalizeLimit clamps a requested page size into [1, MaxLimit].
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// After reports whether (createdAt, id) sorts strictly after the cursor in ascending order.
func (c Cursor) After(createdAt time.Time, id string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id > c.ID
	}
	return createdAt.After(c.CreatedAt)
}
