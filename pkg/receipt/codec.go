package receipt

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SignedReceipt is the immutable wire form of a signed TrustReceipt. Nullable
// fields serialize as explicit nulls; the content fields are omitted entirely
// when content was not included at build time.
type SignedReceipt struct {
	Version         string             `json:"version"`
	Timestamp       string             `json:"timestamp"`
	SessionID       string             `json:"session_id"`
	AgentID         *string            `json:"agent_id"`
	PromptHash      string             `json:"prompt_hash"`
	ResponseHash    string             `json:"response_hash"`
	Scores          map[string]float64 `json:"scores"`
	PrevReceiptHash *string            `json:"prev_receipt_hash"`
	ReceiptHash     string             `json:"receipt_hash"`
	Signature       string             `json:"signature"`
	Metadata        map[string]any     `json:"metadata"`
	PromptContent   any                `json:"prompt_content,omitempty"`
	ResponseContent any                `json:"response_content,omitempty"`
}

// versionGate accepts any 1.x receipt. Major bumps change the hash payload
// and must not verify silently.
var versionGate = func() *semver.Constraints {
	c, err := semver.NewConstraint("^1")
	if err != nil {
		panic(err)
	}
	return c
}()

// Export projects the receipt into its wire form. The private key never
// appears here; an unsigned receipt cannot be exported.
func (r *TrustReceipt) Export() (*SignedReceipt, error) {
	if !r.IsSigned() {
		return nil, ErrUnsigned
	}
	return &SignedReceipt{
		Version:         r.Version,
		Timestamp:       r.Timestamp,
		SessionID:       r.SessionID,
		AgentID:         optString(r.AgentID),
		PromptHash:      r.PromptHash,
		ResponseHash:    r.ResponseHash,
		Scores:          r.Scores,
		PrevReceiptHash: optString(r.PrevReceiptHash),
		ReceiptHash:     r.ReceiptHash,
		Signature:       r.Signature,
		Metadata:        r.Metadata,
		PromptContent:   r.PromptContent,
		ResponseContent: r.ResponseContent,
	}, nil
}

// FromSigned reconstructs a TrustReceipt from its wire form, strictly for
// re-running verification. The stored receipt hash is preserved verbatim and
// never recomputed, so a tampered-and-rehashed forgery still fails signature
// verification against the original key. Hashes are re-derived from content
// only via VerifyContent, on explicit request.
func FromSigned(sr *SignedReceipt) *TrustReceipt {
	return &TrustReceipt{
		Version:         sr.Version,
		Timestamp:       sr.Timestamp,
		SessionID:       sr.SessionID,
		AgentID:         derefString(sr.AgentID),
		PromptHash:      sr.PromptHash,
		ResponseHash:    sr.ResponseHash,
		Scores:          sr.Scores,
		PrevReceiptHash: derefString(sr.PrevReceiptHash),
		ReceiptHash:     sr.ReceiptHash,
		Signature:       sr.Signature,
		Metadata:        sr.Metadata,
		PromptContent:   sr.PromptContent,
		ResponseContent: sr.ResponseContent,
	}
}

// Verify checks the wire receipt's signature against a public key.
func (sr *SignedReceipt) Verify(pubHex string) bool {
	return FromSigned(sr).Verify(pubHex)
}

// EncodeSigned serializes a SignedReceipt for storage or transmission.
func EncodeSigned(sr *SignedReceipt) ([]byte, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("receipt: encode: %w", err)
	}
	return data, nil
}

// DecodeSigned parses and validates a wire receipt. The document must match
// the embedded wire schema (exact key set, hex lengths, non-empty signature)
// and carry a compatible protocol version.
func DecodeSigned(data []byte) (*SignedReceipt, error) {
	if err := validateWire(data); err != nil {
		return nil, err
	}

	var sr SignedReceipt
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("receipt: decode: %w", err)
	}

	v, err := semver.NewVersion(sr.Version)
	if err != nil {
		return nil, fmt.Errorf("receipt: unparseable version %q: %w", sr.Version, err)
	}
	if !versionGate.Check(v) {
		return nil, fmt.Errorf("receipt: unsupported version %q", sr.Version)
	}
	return &sr, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
