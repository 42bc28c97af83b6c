package handlers

import (
	"net/http"
	"strconv"
)

// pageParams reads the limit/cursor query parameters. A non-numeric limit
// falls through to the service default.
func pageParams(r *http.Request) (int, string) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	return limit, r.URL.Query().Get("cursor")
}
