package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const maxPageSize = 200

// pageParams reads limit and offset from the query string.
func pageParams(r *http.Request) (limit, offset int, err error) {
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be zero or more")
		}
	}
	return limit, offset, nil
}

func pathID(r *http.Request, name string) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}
