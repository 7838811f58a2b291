package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sonate-labs/trust-receipts-go/pkg/canonical"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the SHA-256 hex digest of the canonical form of v.
// Hashing nil is well-defined: it yields the digest of canonical "null",
// since a prompt or response may legitimately be absent.
func ContentHash(v any) (string, error) {
	b, err := canonical.Marshal(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}

// NormalizedTextHash hashes free-form transcript text after
// canonical.NormalizeText, for pipelines that hash raw captures rather than
// structured payloads.
func NormalizedTextHash(s string) string {
	return SHA256Hex([]byte(canonical.NormalizeText(s)))
}
