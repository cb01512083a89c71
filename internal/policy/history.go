package policy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

// Record is one observed tool result. Error is set when the call failed, in
// which case Payload is empty.
type Record struct {
	Tool    string          `json:"tool"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// History lists tool results in the order they were observed.
type History []Record

var (
	ErrNoVerdict        = errors.New("no verdict recorded")
	ErrFailedCall       = errors.New("most recent call failed")
	ErrMalformedVerdict = errors.New("malformed verdict payload")
)

// verdictPayload makes passed mandatory when parsing.
type verdictPayload struct {
	RuleID string `json:"rule_id"`
	Passed *bool  `json:"passed"`
}

// LastVerdict parses the most recent record for tool. Only the most recent
// record counts; earlier passes are not consulted when it failed or is
// unreadable.
func LastVerdict(h History, tool string) (models.ValidationStep, error) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Tool != tool {
			continue
		}
		return parseRecord(h[i])
	}
	return models.ValidationStep{}, ErrNoVerdict
}

func parseRecord(r Record) (models.ValidationStep, error) {
	if r.Error != "" {
		return models.ValidationStep{}, fmt.Errorf("%w: %s", ErrFailedCall, r.Error)
	}
	var p verdictPayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return models.ValidationStep{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if p.Passed == nil {
		return models.ValidationStep{}, fmt.Errorf("%w: missing passed", ErrMalformedVerdict)
	}
	var v models.ValidationStep
	if err := json.Unmarshal(r.Payload, &v); err != nil {
		return models.ValidationStep{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	return v, nil
}

// Append returns h with r added.
func (h History) Append(r Record) History {
	return append(h, r)
}
