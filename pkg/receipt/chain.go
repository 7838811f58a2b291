package receipt

import "fmt"

// ChainErrorKind classifies a single failure found during chain verification.
type ChainErrorKind string

const (
	// ChainErrorLinkBreak: a receipt's predecessor pointer does not match the
	// receipt hash of the entry before it.
	ChainErrorLinkBreak ChainErrorKind = "link_break"
	// ChainErrorUnexpectedStart: a receipt with no predecessor pointer
	// appears after index 0.
	ChainErrorUnexpectedStart ChainErrorKind = "unexpected_chain_start"
	// ChainErrorInvalidSignature: the receipt's signature does not verify
	// against the supplied public key.
	ChainErrorInvalidSignature ChainErrorKind = "invalid_signature"
)

// ChainError names one break in a chain: which index, and why.
type ChainError struct {
	Index  int            `json:"index"`
	Kind   ChainErrorKind `json:"kind"`
	Detail string         `json:"detail"`
}

func (e ChainError) Error() string {
	return fmt.Sprintf("receipt %d: %s: %s", e.Index, e.Kind, e.Detail)
}

// ChainReport is the outcome of verifying an ordered receipt sequence.
// Verification never raises; an invalid chain is data for the auditor.
type ChainReport struct {
	Valid  bool         `json:"valid"`
	Errors []ChainError `json:"errors"`
}

// VerifyChain checks an ordered sequence of wire receipts: every entry's
// signature (index 0 included) and every adjacent predecessor link. All
// failures are collected in order rather than failing fast — an auditor
// inspecting a compromised chain needs the full list of breaks, not just the
// first.
func VerifyChain(receipts []*SignedReceipt, pubHex string) ChainReport {
	errs := []ChainError{}
	for i, sr := range receipts {
		if i > 0 {
			errs = append(errs, checkLink(i, sr, receipts[i-1])...)
		}
		if !sr.Verify(pubHex) {
			errs = append(errs, ChainError{
				Index:  i,
				Kind:   ChainErrorInvalidSignature,
				Detail: fmt.Sprintf("signature on receipt %d does not verify", i),
			})
		}
	}
	return ChainReport{Valid: len(errs) == 0, Errors: errs}
}

func checkLink(i int, cur, prev *SignedReceipt) []ChainError {
	if cur.PrevReceiptHash == nil {
		return []ChainError{{
			Index:  i,
			Kind:   ChainErrorUnexpectedStart,
			Detail: fmt.Sprintf("receipt %d has no predecessor pointer but follows receipt %d", i, i-1),
		}}
	}
	if *cur.PrevReceiptHash != prev.ReceiptHash {
		return []ChainError{{
			Index:  i,
			Kind:   ChainErrorLinkBreak,
			Detail: fmt.Sprintf("receipt %d does not chain from receipt %d", i, i-1),
		}}
	}
	return nil
}
