// Package receipt implements the trust receipt data model: tamper-evident,
// chainable attestations for prompt/response exchanges. A receipt binds
// content hashes, scores, and a predecessor pointer under a single
// receipt hash that an Ed25519 signature then covers.
package receipt

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sonate-labs/trust-receipts-go/pkg/canonical"
	"github.com/sonate-labs/trust-receipts-go/pkg/crypto"
)

// Version is the receipt protocol version embedded in every receipt hash.
const Version = "1.0"

// TimestampFormat is UTC with microsecond precision and an explicit Z
// designator. Timestamps are carried as strings so a decoded receipt hashes
// byte-identically to the original.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// MaxMetadataBytes bounds the canonicalized size of receipt metadata. The
// hash payload embeds metadata verbatim, so an unbounded map would make
// receipt hashing cost unbounded too.
const MaxMetadataBytes = 64 * 1024

var (
	ErrEmptySessionID   = errors.New("receipt: session id must not be empty")
	ErrNonFiniteScore   = errors.New("receipt: scores must be finite")
	ErrMetadataTooLarge = fmt.Errorf("receipt: canonical metadata exceeds %d bytes", MaxMetadataBytes)
	ErrUnsigned         = errors.New("receipt: receipt is not signed")
)

// Input carries everything a caller supplies to build a receipt. It is
// consumed once; Build copies what it keeps.
type Input struct {
	SessionID       string
	Prompt          any
	Response        any
	Scores          map[string]float64
	AgentID         string // optional
	PrevReceiptHash string // optional, 64 hex chars when set
	Metadata        map[string]any
	IncludeContent  bool
}

// TrustReceipt is the core entity. ReceiptHash is computed once at build time
// and never recomputed; Signature is the only field that mutates afterwards,
// transitioning once from empty to a 128-hex-char Ed25519 signature.
type TrustReceipt struct {
	Version         string
	Timestamp       string
	SessionID       string
	AgentID         string // empty means absent (null on the wire)
	PromptHash      string
	ResponseHash    string
	Scores          map[string]float64
	PrevReceiptHash string // empty means chain start (null on the wire)
	ReceiptHash     string
	Signature       string // empty until Sign
	Metadata        map[string]any

	// Plaintext payloads, retained only when Input.IncludeContent was set.
	PromptContent   any
	ResponseContent any
}

// Build validates in, hashes prompt and response, and assembles a receipt
// with its receipt hash fixed. It does not sign.
func Build(in Input, now time.Time) (*TrustReceipt, error) {
	if in.SessionID == "" {
		return nil, ErrEmptySessionID
	}
	for name, v := range in.Scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %q = %v", ErrNonFiniteScore, name, v)
		}
	}

	metadata := make(map[string]any, len(in.Metadata))
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metaCanonical, err := canonical.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("receipt: metadata: %w", err)
	}
	if len(metaCanonical) > MaxMetadataBytes {
		return nil, ErrMetadataTooLarge
	}

	promptHash, err := crypto.ContentHash(in.Prompt)
	if err != nil {
		return nil, fmt.Errorf("receipt: prompt: %w", err)
	}
	responseHash, err := crypto.ContentHash(in.Response)
	if err != nil {
		return nil, fmt.Errorf("receipt: response: %w", err)
	}

	scores := make(map[string]float64, len(in.Scores))
	for k, v := range in.Scores {
		scores[k] = v
	}

	r := &TrustReceipt{
		Version:         Version,
		Timestamp:       now.UTC().Format(TimestampFormat),
		SessionID:       in.SessionID,
		AgentID:         in.AgentID,
		PromptHash:      promptHash,
		ResponseHash:    responseHash,
		Scores:          scores,
		PrevReceiptHash: in.PrevReceiptHash,
		Metadata:        metadata,
	}
	if in.IncludeContent {
		r.PromptContent = in.Prompt
		r.ResponseContent = in.Response
	}

	hash, err := r.computeHash()
	if err != nil {
		return nil, err
	}
	r.ReceiptHash = hash
	return r, nil
}

// computeHash canonicalizes the nine-field hash payload. Absent nullable
// fields serialize as JSON null, not as missing keys.
func (r *TrustReceipt) computeHash() (string, error) {
	payload := map[string]any{
		"version":           r.Version,
		"timestamp":         r.Timestamp,
		"session_id":        r.SessionID,
		"agent_id":          nullable(r.AgentID),
		"prompt_hash":       r.PromptHash,
		"response_hash":     r.ResponseHash,
		"scores":            r.Scores,
		"prev_receipt_hash": nullable(r.PrevReceiptHash),
		"metadata":          r.Metadata,
	}
	hash, err := crypto.ContentHash(payload)
	if err != nil {
		return "", fmt.Errorf("receipt: hash payload: %w", err)
	}
	return hash, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Sign signs the stored receipt hash (its UTF-8 hex bytes, not a re-hash)
// with an Ed25519 private key. Re-signing is allowed and only replaces the
// signature; the receipt hash is already fixed.
func (r *TrustReceipt) Sign(privHex string) error {
	sig, err := crypto.Sign([]byte(r.ReceiptHash), privHex)
	if err != nil {
		return err
	}
	r.Signature = sig
	return nil
}

// IsSigned reports whether the receipt carries a signature.
func (r *TrustReceipt) IsSigned() bool {
	return r.Signature != ""
}

// Verify checks the signature over the stored receipt hash. An unsigned
// receipt never verifies. Fail-closed: malformed inputs yield false.
func (r *TrustReceipt) Verify(pubHex string) bool {
	if !r.IsSigned() {
		return false
	}
	return crypto.Verify(r.Signature, []byte(r.ReceiptHash), pubHex)
}

// VerifyContent re-derives the prompt and response hashes from the embedded
// plaintext content and compares them to the stored hashes. Only meaningful
// for receipts built with IncludeContent; signature verification never does
// this implicitly — it always operates on the stored receipt hash.
func (r *TrustReceipt) VerifyContent() (bool, error) {
	promptHash, err := crypto.ContentHash(r.PromptContent)
	if err != nil {
		return false, fmt.Errorf("receipt: prompt content: %w", err)
	}
	responseHash, err := crypto.ContentHash(r.ResponseContent)
	if err != nil {
		return false, fmt.Errorf("receipt: response content: %w", err)
	}
	return promptHash == r.PromptHash && responseHash == r.ResponseHash, nil
}

// ChainsFrom reports whether this receipt's stated predecessor matches prev.
// A receipt with no predecessor pointer is a chain start and chains from
// nothing; a non-empty pointer must equal prev's receipt hash, and never
// matches a nil prev.
func (r *TrustReceipt) ChainsFrom(prev *TrustReceipt) bool {
	if r.PrevReceiptHash == "" {
		return prev == nil
	}
	return prev != nil && r.PrevReceiptHash == prev.ReceiptHash
}
