// Package crypto provides the Ed25519 signing primitives and SHA-256 content
// hashing that trust receipts are built on. All key material crosses the API
// boundary as lowercase hex strings: 64 chars for a private seed or public
// key, 128 chars for a signature.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrInvalidPrivateKey indicates malformed private key material. Signing
	// with a bad key is a programming error and is surfaced synchronously.
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")
	// ErrInvalidPublicKey indicates malformed public key material.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
)

// KeyPair holds a hex-encoded Ed25519 seed and its public key.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// GenerateKeyPair creates a fresh Ed25519 keypair. Keys are cryptographically
// independent across calls.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("crypto: key generation failed: %w", err)
	}
	return KeyPair{
		PrivateKey: hex.EncodeToString(priv.Seed()),
		PublicKey:  hex.EncodeToString(pub),
	}, nil
}

// DerivePublic returns the public key for a private key. Pure: the same
// private key always yields the same public key.
func DerivePublic(privHex string) (string, error) {
	priv, err := privateKeyFromHex(privHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(priv.Public().(ed25519.PublicKey)), nil
}

// Sign signs message with an Ed25519 private key and returns the 128-hex-char
// signature.
func Sign(message []byte, privHex string) (string, error) {
	priv, err := privateKeyFromHex(privHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(priv, message)), nil
}

// Verify checks an Ed25519 signature against a public key. Fail-closed: any
// malformed signature or key yields false, never a panic or error.
func Verify(sigHex string, message []byte, pubHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	pub, err := hex.DecodeString(pubHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

// privateKeyFromHex accepts either a 32-byte seed or a full 64-byte Ed25519
// private key.
func privateKeyFromHex(privHex string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex encoded", ErrInvalidPrivateKey)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("%w: length %d bytes", ErrInvalidPrivateKey, len(raw))
	}
}
