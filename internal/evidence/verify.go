package evidence

import (
	"archive/zip"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/ledger"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

// maxMemberSize bounds each decompressed bundle member.
const maxMemberSize = 256 << 20

var ErrBundleInvalid = errors.New("evidence bundle invalid")

// Report is the outcome of VerifyBundle.
type Report struct {
	Entries        int      `json:"entries"`
	Signed         bool     `json:"signed"`
	SignatureValid bool     `json:"signature_valid"`
	KeySource      string   `json:"key_source,omitempty"`
	KeyID          string   `json:"key_id,omitempty"`
	Mismatched     []string `json:"mismatched"`
	Problems       []string `json:"problems"`
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return len(r.Problems) == 0 && len(r.Mismatched) == 0 && (!r.Signed || r.SignatureValid)
}

// VerifyBundle checks manifest digests, the signature and every entry hash.
// When trusted is nil the bundled public key is used and KeySource is
// "bundle". Structural failures return an error; content failures are listed
// in the report.
func VerifyBundle(r io.ReaderAt, size int64, trusted ed25519.PublicKey) (*Report, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBundleInvalid, err)
	}
	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		data, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBundleInvalid, f.Name, err)
		}
		files[f.Name] = data
	}

	raw, ok := files[ManifestName]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrBundleInvalid, ManifestName)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrBundleInvalid, err)
	}
	ledgerJSON, ok := files[LedgerName]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrBundleInvalid, LedgerName)
	}

	rep := &Report{Mismatched: []string{}, Problems: []string{}}
	listed := make(map[string]bool, len(manifest.Files))
	for _, mf := range manifest.Files {
		listed[mf.Name] = true
		data, ok := files[mf.Name]
		if !ok {
			rep.Problems = append(rep.Problems, "missing member "+mf.Name)
			continue
		}
		if got := digest(data); got != mf.SHA256 {
			rep.Problems = append(rep.Problems, fmt.Sprintf("%s digest %s, manifest %s", mf.Name, got, mf.SHA256))
		}
	}
	for name := range files {
		if name != ManifestName && !listed[name] {
			rep.Problems = append(rep.Problems, "unlisted member "+name)
		}
	}
	if digest(ledgerJSON) != manifest.LedgerHash {
		rep.Problems = append(rep.Problems, "ledger_hash does not match "+LedgerName)
	}

	var entries []models.AuditEntry
	if err := json.Unmarshal(ledgerJSON, &entries); err != nil {
		return nil, fmt.Errorf("%w: ledger: %v", ErrBundleInvalid, err)
	}
	rep.Entries = len(entries)
	if manifest.Entries != len(entries) {
		rep.Problems = append(rep.Problems, fmt.Sprintf("manifest lists %d entries, ledger has %d", manifest.Entries, len(entries)))
	}
	for _, e := range entries {
		if err := ledger.Verify(e); err != nil {
			rep.Mismatched = append(rep.Mismatched, e.ID)
		}
	}

	sigData, signed := files[SignatureName]
	rep.Signed = signed || manifest.Signed
	if !rep.Signed {
		return rep, nil
	}
	if !signed {
		rep.Problems = append(rep.Problems, "manifest marks bundle signed but "+SignatureName+" is missing")
		return rep, nil
	}
	pub := trusted
	rep.KeySource = "trusted"
	if pub == nil {
		rep.KeySource = "bundle"
		pemData, ok := files[PublicKeyName]
		if !ok {
			rep.Problems = append(rep.Problems, "no public key supplied or bundled")
			return rep, nil
		}
		if pub, err = ParsePublicKey(pemData); err != nil {
			rep.Problems = append(rep.Problems, "bundled public key: "+err.Error())
			return rep, nil
		}
	}
	rep.KeyID = KeyID(pub)
	env, err := ReadSignature(sigData)
	if err != nil {
		rep.Problems = append(rep.Problems, err.Error())
		return rep, nil
	}
	if err := env.Verify(ledgerJSON, pub); err != nil {
		rep.Problems = append(rep.Problems, err.Error())
		return rep, nil
	}
	rep.SignatureValid = true
	return rep, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxMemberSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxMemberSize {
		return nil, fmt.Errorf("member exceeds %d bytes", maxMemberSize)
	}
	return data, nil
}
