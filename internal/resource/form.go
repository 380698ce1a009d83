package resource

import (
	"math"
	"strconv"
	"strings"

	"staffdesk/portal/internal/apperr"
)

// FieldError names a form field whose value could not be used.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return "invalid " + e.Field
}

func parseAmount(raw, field string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Validation(&FieldError{Field: field})
	}
	return v, nil
}
