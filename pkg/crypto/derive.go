package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const agentKDFSalt = "sonate-agent-kdf"

// DeriveAgentKeyPair derives a deterministic per-agent keypair from a master
// private key using HKDF-SHA256 over the master seed. The same master key and
// agent ID always yield the same keypair, so a fleet operator can hand each
// agent its own signing key without storing any of them.
func DeriveAgentKeyPair(masterPrivHex, agentID string) (KeyPair, error) {
	if agentID == "" {
		return KeyPair{}, fmt.Errorf("crypto: agent id must not be empty")
	}
	master, err := privateKeyFromHex(masterPrivHex)
	if err != nil {
		return KeyPair{}, err
	}

	kdf := hkdf.New(sha256.New, master.Seed(), []byte(agentKDFSalt), []byte(agentID))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(kdf, seed); err != nil {
		return KeyPair{}, fmt.Errorf("crypto: HKDF derivation failed: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return KeyPair{
		PrivateKey: hex.EncodeToString(seed),
		PublicKey:  hex.EncodeToString(priv.Public().(ed25519.PublicKey)),
	}, nil
}
