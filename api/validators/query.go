package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

func fieldError(message, field string, extra ...any) error {
	details := map[string]any{"field": field}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i].(string)] = extra[i+1]
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ParseQueryInt returns fallback when key is absent and rejects values outside [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, fieldError("query parameter must be numeric", key)
	case n < lo || n > hi:
		return 0, fieldError("query parameter out of range", key, "min", lo, "max", hi)
	}
	return n, nil
}

// ParseUUID parses a path or query identifier, reporting field on failure.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fieldError("invalid identifier", field)
	}
	return id, nil
}

// ParseQueryBool reads an optional flag such as ?unread=true.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	flag, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fieldError("query parameter must be a boolean", key)
	}
	return flag, nil
}
