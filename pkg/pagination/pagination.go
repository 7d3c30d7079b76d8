// Package pagination implements the keyset cursors shared by the track
// library, comment threads, and the notification feed. All three list
// newest-first over a (created_at, id) index, so a single cursor shape
// serves every feed.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size when the client sends none.
	DefaultLimit = 25
	// MaxLimit caps the page size regardless of what the client asks for.
	MaxLimit = 100
)

// cursorSep joins the timestamp and row id inside the encoded payload.
// A unix timestamp never contains it and a UUID never starts with it.
const cursorSep = "."

// Params carries the raw paging inputs from a list request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor marks the last row of the previous page. Queries resume strictly
// after (CreatedAt, ID), so rows inserted mid-scroll cannot shift the page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps a requested page size into the allowed range.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer adds one row to the clamped limit; the extra row tells
// the repo whether a next page exists without a second count query.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders an opaque continuation token for the client.
// Microsecond precision matches the timestamptz columns it pages over.
func EncodeCursor(cursor Cursor) string {
	payload := strconv.FormatInt(cursor.CreatedAt.UTC().UnixMicro(), 10) + cursorSep + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a continuation token. A blank token means the first
// page and returns nil without error.
func ParseCursor(value string) (*Cursor, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	rawTime, rawID, ok := strings.Cut(string(decoded), cursorSep)
	if !ok {
		return nil, fmt.Errorf("malformed cursor")
	}

	micros, err := strconv.ParseInt(rawTime, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	rowID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor id: %w", err)
	}
	return &Cursor{
		CreatedAt: time.UnixMicro(micros).UTC(),
		ID:        rowID,
	}, nil
}
