package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/checker"
)

// fields wraps the loosely typed data map supplied by the orchestrator.
type fields map[string]any

func (f fields) str(key, def string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return def
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// has reports a present, non-blank value.
func (f fields) has(key string) bool {
	return f.str(key, "") != ""
}

// boolean returns def when key is absent. A present value that is not a
// bool or a boolean string is an argument error, never the default.
func (f fields) boolean(key string, def bool) (bool, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b, nil
		}
	}
	return false, &checker.ArgumentError{Field: key, Reason: fmt.Sprintf("must be true or false, got %v", v)}
}

// money formats numbers as dollars; strings pass through.
func (f fields) money(key, def string) string {
	switch t := f[key].(type) {
	case float64:
		return fmt.Sprintf("$%.2f", t)
	case int:
		return fmt.Sprintf("$%d.00", t)
	}
	return f.str(key, def)
}
