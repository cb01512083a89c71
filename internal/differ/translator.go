// Package differ describes how a tool's arguments changed between two calls
// in the same run. The engine uses it to annotate refinement entries in the
// audit ledger.
package differ

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/wI2L/jsondiff"
)

// Compare returns the JSON patch turning prev into next.
func Compare(prev, next json.RawMessage) (jsondiff.Patch, error) {
	patch, err := jsondiff.CompareJSON(prev, next)
	if err != nil {
		return nil, fmt.Errorf("failed to diff arguments: %w", err)
	}
	return patch, nil
}

// Translate patches to short english, one line per changed field, sorted.
func Translate(patches jsondiff.Patch) []string {
	if len(patches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var translations []string
	for _, op := range patches {
		translation := translateOperation(op)
		if translation != "" && !seen[translation] {
			seen[translation] = true
			translations = append(translations, translation)
		}
	}
	sort.Strings(translations)
	return translations
}

// Fields lists the changed argument names, sorted.
func Fields(patches jsondiff.Patch) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, op := range patches {
		f := fieldName(op.Path)
		if !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	return fields
}

func translateOperation(op jsondiff.Operation) string {
	field := fieldName(op.Path)

	switch op.Type {
	case jsondiff.OperationAdd:
		return fmt.Sprintf("%s added", field)
	case jsondiff.OperationRemove:
		return fmt.Sprintf("%s removed", field)
	case jsondiff.OperationReplace:
		return fmt.Sprintf("%s changed", field)
	case jsondiff.OperationMove, jsondiff.OperationCopy:
		return fmt.Sprintf("%s moved", field)
	default:
		return ""
	}
}

// fieldName turns a JSON pointer into a dotted name: "/data/collateral"
// becomes "data.collateral"; the root becomes "arguments".
func fieldName(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "arguments"
	}
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}
