package policy

import (
	"errors"
	"sort"
)

// latestEntry is the CEL view of a tool's most recent record.
type latestEntry struct {
	Passed    bool
	RuleID    string
	Failed    bool
	Malformed bool
}

// buildInput computes the CEL input map. Tools whose most recent record is
// unusable appear with passed=false.
func buildInput(h History, tool string) (map[string]interface{}, []string) {
	latest := map[string]latestEntry{}
	seen := map[string]bool{}
	for i := len(h) - 1; i >= 0; i-- {
		name := h[i].Tool
		if seen[name] {
			continue
		}
		seen[name] = true

		v, err := parseRecord(h[i])
		switch {
		case err == nil:
			latest[name] = latestEntry{Passed: v.Passed, RuleID: v.RuleID}
		case errors.Is(err, ErrFailedCall):
			latest[name] = latestEntry{Failed: true}
		default:
			latest[name] = latestEntry{Malformed: true}
		}
	}

	var malformed []string
	view := make(map[string]interface{}, len(latest))
	for name, e := range latest {
		if e.Malformed {
			malformed = append(malformed, name)
		}
		view[name] = map[string]interface{}{
			"passed":    e.Passed,
			"rule_id":   e.RuleID,
			"failed":    e.Failed,
			"malformed": e.Malformed,
		}
	}
	sort.Strings(malformed)

	return map[string]interface{}{
		"tool":   tool,
		"calls":  len(h),
		"latest": view,
	}, malformed
}
