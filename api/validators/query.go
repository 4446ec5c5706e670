package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter, clamped to
// [min, max]. An absent parameter yields defaultVal; a malformed or
// out-of-range one is a validation error naming the parameter.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError("query parameter must be numeric", map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, queryError("query parameter out of range", map[string]any{
			"field": key,
			"min":   min,
			"max":   max,
		})
	}
	return value, nil
}

func queryError(msg string, details map[string]any) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}
