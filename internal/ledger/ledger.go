// Package ledger is the append-only audit trail. Entries are returned newest
// first. Only Append creates entries and only Reset removes them.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

// ResetAction is the action of the single entry left by Reset.
const ResetAction = "System Reset"

var (
	ErrInvalidSource = errors.New("invalid audit source")
	ErrInvalidStatus = errors.New("invalid audit status")
	ErrEmptyAction   = errors.New("audit action is required")
	ErrHashMismatch  = errors.New("audit hash mismatch")
)

// Store persists entries. Implementations must be safe to call while the
// ledger holds its lock; they are never called concurrently by one Ledger.
type Store interface {
	// Load returns persisted entries oldest first.
	Load() ([]models.AuditEntry, error)
	Insert(e models.AuditEntry) error
	// Replace discards every entry and stores e alone.
	Replace(e models.AuditEntry) error
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries []models.AuditEntry // oldest first
	store   Store

	now   func() time.Time
	newID func() string
}

// New returns an in-memory ledger.
func New() *Ledger {
	return &Ledger{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Open returns a ledger backed by store, restoring its entries.
func Open(store Store) (*Ledger, error) {
	l := New()
	if store == nil {
		return l, nil
	}
	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load audit entries: %w", err)
	}
	l.store = store
	l.entries = entries
	return l, nil
}

type appendOptions struct {
	status   models.Status
	metadata *models.AuditMetadata
}

// Option configures a single Append.
type Option func(*appendOptions)

// WithStatus overrides the default Verified status.
func WithStatus(s models.Status) Option {
	return func(o *appendOptions) { o.status = s }
}

// WithMetadata attaches optional measurements. m is copied.
func WithMetadata(m models.AuditMetadata) Option {
	return func(o *appendOptions) { o.metadata = &m }
}

// Append records an action and returns the new entry id. If the store
// rejects the write nothing is recorded.
func (l *Ledger) Append(action, details string, source models.Source, opts ...Option) (string, error) {
	if strings.TrimSpace(action) == "" {
		return "", ErrEmptyAction
	}
	if !source.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	o := appendOptions{status: models.StatusVerified}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, o.status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.newEntry(action, details, source, o)
	if err != nil {
		return "", err
	}
	if l.store != nil {
		if err := l.store.Insert(e); err != nil {
			return "", fmt.Errorf("failed to persist audit entry: %w", err)
		}
	}
	l.entries = append(l.entries, e)
	return e.ID, nil
}

// Reset discards every entry and records a single System Reset entry.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.newEntry(ResetAction, "Audit ledger cleared", models.SourceSystem,
		appendOptions{status: models.StatusVerified})
	if err != nil {
		return err
	}
	if l.store != nil {
		if err := l.store.Replace(e); err != nil {
			return fmt.Errorf("failed to persist reset: %w", err)
		}
	}
	l.entries = []models.AuditEntry{e}
	return nil
}

// Entries returns a copy of the ledger, newest first.
func (l *Ledger) Entries() []models.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.AuditEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = clone(e)
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// newEntry must be called with l.mu held.
func (l *Ledger) newEntry(action, details string, source models.Source, o appendOptions) (models.AuditEntry, error) {
	ts := l.now().UTC()
	hash, err := Hash(action, details, ts)
	if err != nil {
		return models.AuditEntry{}, err
	}
	e := models.AuditEntry{
		ID:        l.newID(),
		Timestamp: ts,
		Action:    action,
		Details:   details,
		Source:    source,
		Status:    o.status,
		Hash:      hash,
	}
	if o.metadata != nil {
		m := *o.metadata
		e.Metadata = &m
		e = clone(e)
	}
	return e, nil
}

// Hash is the traceability tag stored on each entry: "0x" followed by the
// first 16 hex characters of SHA-256 over the canonical JSON of action,
// details and timestamp. It is not a tamper-evidence control.
func Hash(action, details string, ts time.Time) (string, error) {
	raw, err := json.Marshal(struct {
		Action    string `json:"action"`
		Details   string `json:"details"`
		Timestamp string `json:"timestamp"`
	}{action, details, ts.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize audit entry: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "0x" + hex.EncodeToString(sum[:])[:16], nil
}

// Verify recomputes e's hash and compares it with the stored one. It catches
// entries edited in the backing store.
func Verify(e models.AuditEntry) error {
	want, err := Hash(e.Action, e.Details, e.Timestamp)
	if err != nil {
		return err
	}
	if e.Hash != want {
		return fmt.Errorf("%w: entry %s has %s, content hashes to %s", ErrHashMismatch, e.ID, e.Hash, want)
	}
	return nil
}

func clone(e models.AuditEntry) models.AuditEntry {
	if e.Metadata == nil {
		return e
	}
	m := *e.Metadata
	m.CriticScore = clonePtr(m.CriticScore)
	m.LatencyMs = clonePtr(m.LatencyMs)
	m.ComplianceCheck = clonePtr(m.ComplianceCheck)
	m.RefinementIterations = clonePtr(m.RefinementIterations)
	e.Metadata = &m
	return e
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
