// Package evidence packages the audit ledger into a deterministic zip bundle
// with a SHA-256 manifest and an optional ed25519 signature, and verifies
// such bundles offline.
package evidence

import (
	"archive/zip"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/version"
)

// Bundle member names.
const (
	ManifestName  = "manifest.json"
	LedgerName    = "ledger.json"
	SignatureName = "ledger.json.sig"
	PolicyName    = "policy.yaml"
	PublicKeyName = "public.key"
	ReadmeName    = "README.txt"
)

// zip epoch keeps bundles byte-identical across runs.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Manifest lists every bundle member with its digest.
type Manifest struct {
	ArbiterVersion string         `json:"arbiter_version"`
	CanonVersion   string         `json:"canon_version"`
	Entries        int            `json:"entries"`
	LedgerHash     string         `json:"ledger_hash"`
	Signed         bool           `json:"signed"`
	Files          []ManifestFile `json:"files"`
}

// ManifestFile describes one member.
type ManifestFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Options controls Export.
type Options struct {
	Entries    []models.AuditEntry
	Policy     []byte
	PrivateKey ed25519.PrivateKey
}

type member struct {
	name string
	data []byte
}

// CanonicalLedger returns the RFC 8785 form of entries.
func CanonicalLedger(entries []models.AuditEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize ledger: %w", err)
	}
	return canon, nil
}

// Export writes a bundle to w and returns its manifest.
func Export(w io.Writer, opts Options) (*Manifest, error) {
	ledgerJSON, err := CanonicalLedger(opts.Entries)
	if err != nil {
		return nil, err
	}

	members := []member{{LedgerName, ledgerJSON}}
	if opts.PrivateKey != nil {
		members = append(members, member{SignatureName, Sign(ledgerJSON, opts.PrivateKey)})
		pub, _ := opts.PrivateKey.Public().(ed25519.PublicKey)
		members = append(members, member{PublicKeyName, EncodePublicKey(pub)})
	}
	if len(opts.Policy) > 0 {
		members = append(members, member{PolicyName, opts.Policy})
	}
	members = append(members, member{ReadmeName, []byte(readme(opts.PrivateKey != nil))})
	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })

	manifest := &Manifest{
		ArbiterVersion: version.BuildVersion(),
		CanonVersion:   CanonJCS,
		Entries:        len(opts.Entries),
		LedgerHash:     digest(ledgerJSON),
		Signed:         opts.PrivateKey != nil,
	}
	for _, m := range members {
		manifest.Files = append(manifest.Files, ManifestFile{Name: m.name, SHA256: digest(m.data), Size: int64(len(m.data))})
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}

	zw := zip.NewWriter(w)
	if err := addToZip(zw, ManifestName, manifestJSON); err != nil {
		return nil, fmt.Errorf("failed to add manifest: %w", err)
	}
	for _, m := range members {
		if err := addToZip(zw, m.name, m.data); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize bundle: %w", err)
	}
	return manifest, nil
}

// ExportFile writes a bundle to path.
func ExportFile(path string, opts Options) (*Manifest, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	manifest, err := Export(f, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

func addToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func readme(signed bool) string {
	s := `Arbiter evidence bundle

ledger.json      audit entries, newest first, RFC 8785 canonical JSON
manifest.json    SHA-256 digest of every member
policy.yaml      gate policy in force at export time, when known
`
	if signed {
		s += `ledger.json.sig  ed25519 signature over ledger.json
public.key       signer public key (verify against a trusted copy)
`
	}
	s += `
Verify with: arbiter ledger verify --bundle <file> [--public-key <trusted.pub>]
`
	return s
}
