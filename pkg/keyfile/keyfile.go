// Package keyfile loads and stores Ed25519 key material as YAML files for
// the CLI. Receipts themselves never embed key material.
package keyfile

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sonate-labs/trust-receipts-go/pkg/crypto"
)

// Algorithm is the only supported key algorithm.
const Algorithm = "ed25519"

// File is the on-disk key file. PrivateKey is omitted for verify-only files.
type File struct {
	KeyID      string `yaml:"key_id"`
	Algorithm  string `yaml:"algorithm"`
	PrivateKey string `yaml:"private_key,omitempty"`
	PublicKey  string `yaml:"public_key"`
	CreatedAt  string `yaml:"created_at"`
}

// Generate creates a key file with a fresh keypair.
func Generate() (*File, error) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &File{
		KeyID:      uuid.NewString(),
		Algorithm:  Algorithm,
		PrivateKey: kp.PrivateKey,
		PublicKey:  kp.PublicKey,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Load reads and validates a key file. When a private key is present its
// derived public key must match the stored one.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyfile: load %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("keyfile: parse %q: %w", path, err)
	}
	if f.Algorithm != Algorithm {
		return nil, fmt.Errorf("keyfile: unsupported algorithm %q", f.Algorithm)
	}
	if f.PublicKey == "" {
		return nil, fmt.Errorf("keyfile: %q has no public key", path)
	}
	if f.PrivateKey != "" {
		derived, err := crypto.DerivePublic(f.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("keyfile: %q: %w", path, err)
		}
		if derived != f.PublicKey {
			return nil, fmt.Errorf("keyfile: %q: public key does not match private key", path)
		}
	}
	return &f, nil
}

// Save writes the key file with owner-only permissions.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("keyfile: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("keyfile: write %q: %w", path, err)
	}
	return nil
}
