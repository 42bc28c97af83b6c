package pagination

import (
	"encoding/base64"
	"strconv"
)

const (
	// DefaultPageSize is used when a request does not specify a limit.
	DefaultPageSize = 20
	// MaxPageSize is the hard cap on a single page.
	MaxPageSize = 200
)

// Page represents a decoded pagination window.
type Page struct {
	Limit  int
	Offset int
}

// PageResult represents a paginated result set.
type PageResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total"`
}

// EncodeCursor creates an opaque cursor from an offset.
func EncodeCursor(offset int) string {
	if offset < 0 {
		offset = 0
	}
	return base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// DecodeCursor decodes an opaque cursor back into an offset. Empty,
// malformed, and negative cursors all decode to offset 0; a bad cursor
// restarts pagination rather than failing the request.
func DecodeCursor(cursor string) int {
	if cursor == "" {
		return 0
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Paginate resolves a requested limit and cursor into a page window,
// clamping the limit to [1, max].
func Paginate(limit int, cursor string, defaultLimit, maxLimit int) Page {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	if maxLimit <= 0 {
		maxLimit = MaxPageSize
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Limit: limit, Offset: DecodeCursor(cursor)}
}

// Slice applies a page window to items and returns the page plus the
// cursor for the following page. NextCursor is empty when the window
// reaches the end of items.
func Slice[T any](items []T, page Page) PageResult[T] {
	total := len(items)

	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}

	result := PageResult[T]{
		Items: items[start:end],
		Total: total,
	}
	if end < total {
		result.NextCursor = EncodeCursor(end)
		result.HasMore = true
	}
	return result
}
