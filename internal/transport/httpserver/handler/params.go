package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// groupIDQuery reads ?group_id=. Absent, empty and "null" select direct
// expenses.
func groupIDQuery(r *http.Request) *string {
	value := strings.TrimSpace(r.URL.Query().Get("group_id"))
	if value == "" || strings.EqualFold(value, "null") {
		return nil
	}
	return &value
}

func optionalID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
