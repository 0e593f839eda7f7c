package utils

import (
	"net/http"
	"strconv"
)

func GetPaginationParams(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	return page, limit
}

// AddSorting appends an ORDER BY clause based on the sort query param.
// Only known sort keys are honoured, everything else falls back to newest first.
func AddSorting(r *http.Request, query string) string {
	switch r.URL.Query().Get("sort") {
	case "oldest":
		return query + " ORDER BY created_at ASC"
	case "amount":
		return query + " ORDER BY amount DESC"
	default:
		return query + " ORDER BY created_at DESC"
	}
}
