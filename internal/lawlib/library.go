// Package lawlib provides the fixed, in-memory statute corpus and its lookup policy.
//
// Lookup policy: a query matches a key when, after Unicode case folding and
// NFKC normalization, the query is a substring of the key or the key is a
// substring of the query. Keys are scanned in ascending order and the first
// match wins. A Library is immutable after construction and safe for
// concurrent use.
package lawlib

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed corpus/statutes.yaml
var corpusFS embed.FS

// Library is a keyed statute table.
type Library struct {
	keys    []string // folded, sorted
	entries map[string]models.Statute
}

// New builds a library from entries. Duplicate or empty keys are rejected.
func New(entries []models.Statute) (*Library, error) {
	lib := &Library{
		keys:    make([]string, 0, len(entries)),
		entries: make(map[string]models.Statute, len(entries)),
	}
	for _, e := range entries {
		k := fold(e.Key)
		if k == "" {
			return nil, fmt.Errorf("statute %q has an empty key", e.Title)
		}
		if _, dup := lib.entries[k]; dup {
			return nil, fmt.Errorf("duplicate statute key %q", e.Key)
		}
		lib.entries[k] = e
		lib.keys = append(lib.keys, k)
	}
	sort.Strings(lib.keys)
	return lib, nil
}

// Parse decodes a YAML corpus (a list of statutes).
func Parse(data []byte) (*Library, error) {
	var entries []models.Statute
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse statute corpus: %w", err)
	}
	return New(entries)
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// Default returns the library built from the embedded corpus.
func Default() *Library {
	defaultOnce.Do(func() {
		data, err := corpusFS.ReadFile("corpus/statutes.yaml")
		if err != nil {
			panic(fmt.Sprintf("embedded statute corpus missing: %v", err))
		}
		lib, err := Parse(data)
		if err != nil {
			panic(fmt.Sprintf("embedded statute corpus invalid: %v", err))
		}
		defaultLib = lib
	})
	return defaultLib
}

// Lookup returns the first statute whose key matches query.
// A miss is not an error.
func (l *Library) Lookup(query string) (models.Statute, bool) {
	q := fold(query)
	if q == "" {
		return models.Statute{}, false
	}
	for _, k := range l.keys {
		if strings.Contains(k, q) || strings.Contains(q, k) {
			return l.entries[k], true
		}
	}
	return models.Statute{}, false
}

// Search returns every matching statute in scan order.
func (l *Library) Search(query string) []models.Statute {
	q := fold(query)
	if q == "" {
		return nil
	}
	var out []models.Statute
	for _, k := range l.keys {
		if strings.Contains(k, q) || strings.Contains(q, k) {
			out = append(out, l.entries[k])
		}
	}
	return out
}

// Get is an exact (folded) key match.
func (l *Library) Get(key string) (models.Statute, bool) {
	s, ok := l.entries[fold(key)]
	return s, ok
}

// Keys in scan order
func (l *Library) Keys() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

func (l *Library) Len() int { return len(l.keys) }

// cases.Caser is stateful, so one is built per call.
func fold(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	return cases.Fold().String(s)
}
