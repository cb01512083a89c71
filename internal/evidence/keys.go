package evidence

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
)

const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"
)

// GenerateKeys writes a new ed25519 key pair as PEM. The private key file is
// created 0600 and must not already exist.
func GenerateKeys(privateKeyPath, publicKeyPath string) error {
	if _, err := os.Stat(publicKeyPath); err == nil {
		return fmt.Errorf("public key %s already exists", publicKeyPath)
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}
	if err := writePEM(privateKeyPath, privateKeyType, priv, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := writePEM(publicKeyPath, publicKeyType, pub, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

func writePEM(path, typ string, der []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: typ, Bytes: der}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readPEM(path, typ string, size int) ([]byte, error) {
	// #nosec G304 -- path is operator-provided.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodePEM(data, typ, size)
}

func decodePEM(data []byte, typ string, size int) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != typ {
		return nil, fmt.Errorf("invalid key type: expected %s, got %s", typ, block.Type)
	}
	if len(block.Bytes) != size {
		return nil, fmt.Errorf("invalid %s size %d", typ, len(block.Bytes))
	}
	return block.Bytes, nil
}

// LoadPrivateKey reads a PEM private key written by GenerateKeys.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	b, err := readPEM(path, privateKeyType, ed25519.PrivateKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	return ed25519.PrivateKey(b), nil
}

// LoadPublicKey reads a PEM public key written by GenerateKeys.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	b, err := readPEM(path, publicKeyType, ed25519.PublicKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	return ed25519.PublicKey(b), nil
}

// ParsePublicKey decodes PEM public key bytes.
func ParsePublicKey(data []byte) (ed25519.PublicKey, error) {
	b, err := decodePEM(data, publicKeyType, ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(b), nil
}

// EncodePublicKey returns pub as PEM.
func EncodePublicKey(pub ed25519.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: publicKeyType, Bytes: pub})
}

// KeyID is the first 16 hex characters of SHA-256 over the public key.
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])[:16]
}
