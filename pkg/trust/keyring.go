package trust

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/sonate-labs/trust-receipts-go/pkg/receipt"
)

// Keyring maps agent ids to their hex-encoded Ed25519 public keys so a
// verifier can check receipts from a fleet of agents, each signing with its
// own derived key. Safe for concurrent use.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]string)}
}

// Add registers (or replaces) an agent's public key.
func (k *Keyring) Add(agentID, pubHex string) error {
	if agentID == "" {
		return fmt.Errorf("trust: agent id must not be empty")
	}
	raw, err := hex.DecodeString(pubHex)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("trust: public key for agent %q is not a 32-byte hex key", agentID)
	}
	k.mu.Lock()
	k.keys[agentID] = pubHex
	k.mu.Unlock()
	return nil
}

// Remove drops an agent's key. Receipts from that agent no longer verify.
func (k *Keyring) Remove(agentID string) {
	k.mu.Lock()
	delete(k.keys, agentID)
	k.mu.Unlock()
}

// Lookup returns the registered public key for an agent.
func (k *Keyring) Lookup(agentID string) (string, bool) {
	k.mu.RLock()
	pub, ok := k.keys[agentID]
	k.mu.RUnlock()
	return pub, ok
}

// VerifyReceipt checks a receipt's signature against the key registered for
// its agent id. A receipt with no agent id, or from an unregistered agent,
// does not verify.
func (k *Keyring) VerifyReceipt(sr *receipt.SignedReceipt) bool {
	if sr == nil || sr.AgentID == nil {
		return false
	}
	pub, ok := k.Lookup(*sr.AgentID)
	if !ok {
		return false
	}
	return sr.Verify(pub)
}
