package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
)

// lookup reads a trimmed query value; ok is false when it is absent.
func lookup(r *http.Request, key string) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	return raw, raw != ""
}

func badParam(field, msg string, extra ...any) error {
	details := map[string]any{"field": field}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i].(string)] = extra[i+1]
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseQueryInt returns def when key is absent and rejects values outside
// [lo, hi].
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw, ok := lookup(r, key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badParam(key, "query parameter must be numeric")
	}
	if n < lo || n > hi {
		return 0, badParam(key, "query parameter out of range", "min", lo, "max", hi)
	}
	return n, nil
}

func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw, ok := lookup(r, key)
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badParam(key, "query parameter must be a boolean")
	}
	return b, nil
}

func ParseOptionalQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw, ok := lookup(r, key)
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badParam(key, "query parameter must be a uuid")
	}
	return &id, nil
}

// ParseURLUUID reads a chi route parameter.
func ParseURLUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, param)))
	if err != nil {
		return uuid.Nil, badParam(param, "path parameter must be a uuid")
	}
	return id, nil
}
