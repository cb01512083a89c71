package evidence

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Signature envelope constants.
const (
	CanonJCS       = "jcs"
	SigTypeEd25519 = "ed25519"
)

var ErrBadSignature = errors.New("signature does not verify")

// SignatureHeader is the first line of a signature file.
type SignatureHeader struct {
	Canon   string `json:"canon"`
	SigType string `json:"sig_type"`
	KeyID   string `json:"key_id"`
}

// Envelope is a parsed signature file.
type Envelope struct {
	Header    SignatureHeader
	Signature []byte
}

// Sign signs data and returns the envelope bytes: a JSON header line
// followed by the hex signature.
func Sign(data []byte, priv ed25519.PrivateKey) []byte {
	pub, _ := priv.Public().(ed25519.PublicKey)
	header, _ := json.Marshal(SignatureHeader{Canon: CanonJCS, SigType: SigTypeEd25519, KeyID: KeyID(pub)})
	sig := ed25519.Sign(priv, data)
	return []byte(string(header) + "\n" + hex.EncodeToString(sig) + "\n")
}

// ReadSignature parses an envelope written by Sign.
func ReadSignature(data []byte) (*Envelope, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(string(data)), "\n")
	if !ok {
		return nil, fmt.Errorf("invalid signature format: expected header and payload")
	}

	var env Envelope
	if err := json.Unmarshal([]byte(header), &env.Header); err != nil {
		return nil, fmt.Errorf("invalid signature header: %w", err)
	}
	if env.Header.SigType != SigTypeEd25519 {
		return nil, fmt.Errorf("unsupported sig_type %q", env.Header.SigType)
	}
	if env.Header.Canon != CanonJCS {
		return nil, fmt.Errorf("unsupported canon %q", env.Header.Canon)
	}

	sig, err := hex.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("invalid signature size %d", len(sig))
	}
	env.Signature = sig
	return &env, nil
}

// Verify checks env against data. A key id mismatch is reported before the
// signature is checked.
func (env *Envelope) Verify(data []byte, pub ed25519.PublicKey) error {
	if id := KeyID(pub); env.Header.KeyID != "" && env.Header.KeyID != id {
		return fmt.Errorf("%w: signed by key %s, verifying with %s", ErrBadSignature, env.Header.KeyID, id)
	}
	if !ed25519.Verify(pub, data, env.Signature) {
		return ErrBadSignature
	}
	return nil
}
