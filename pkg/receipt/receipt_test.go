package receipt

import (
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonate-labs/trust-receipts-go/pkg/crypto"
)

var buildTime = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

func testInput() Input {
	return Input{
		SessionID: "s1",
		Prompt:    "What is the capital of France?",
		Response:  "Paris.",
		Scores:    map[string]float64{"overall": 0.95},
		Metadata:  map[string]any{"model": "gpt-4o", "run": 7},
	}
}

func TestBuild(t *testing.T) {
	r, err := Build(testInput(), buildTime)
	require.NoError(t, err)

	assert.Equal(t, Version, r.Version)
	assert.Equal(t, "s1", r.SessionID)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6}Z$`), r.Timestamp)
	assert.Len(t, r.PromptHash, 64)
	assert.Len(t, r.ResponseHash, 64)
	assert.Len(t, r.ReceiptHash, 64)
	assert.False(t, r.IsSigned())
	assert.Nil(t, r.PromptContent)
	assert.Nil(t, r.ResponseContent)

	wantPrompt, err := crypto.ContentHash("What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, wantPrompt, r.PromptHash)
}

func TestBuild_Determinism(t *testing.T) {
	in1 := testInput()
	in1.Metadata = map[string]any{"run": 7, "model": "gpt-4o"}

	in2 := testInput()
	in2.Metadata = map[string]any{"model": "gpt-4o", "run": 7}

	r1, err := Build(in1, buildTime)
	require.NoError(t, err)
	r2, err := Build(in2, buildTime)
	require.NoError(t, err)

	assert.Equal(t, r1.ReceiptHash, r2.ReceiptHash,
		"metadata key order must not affect the receipt hash")
}

func TestBuild_Validation(t *testing.T) {
	in := testInput()
	in.SessionID = ""
	_, err := Build(in, buildTime)
	assert.ErrorIs(t, err, ErrEmptySessionID)

	in = testInput()
	in.Scores = map[string]float64{"overall": math.NaN()}
	_, err = Build(in, buildTime)
	assert.ErrorIs(t, err, ErrNonFiniteScore)

	in = testInput()
	in.Scores = map[string]float64{"overall": math.Inf(1)}
	_, err = Build(in, buildTime)
	assert.ErrorIs(t, err, ErrNonFiniteScore)
}

func TestBuild_MetadataBound(t *testing.T) {
	in := testInput()
	in.Metadata = map[string]any{"blob": strings.Repeat("x", MaxMetadataBytes+1)}
	_, err := Build(in, buildTime)
	assert.ErrorIs(t, err, ErrMetadataTooLarge)
}

func TestBuild_NilPayloads(t *testing.T) {
	in := Input{SessionID: "s1", Prompt: nil, Response: nil}
	r, err := Build(in, buildTime)
	require.NoError(t, err)

	nullHash := crypto.SHA256Hex([]byte("null"))
	assert.Equal(t, nullHash, r.PromptHash)
	assert.Equal(t, nullHash, r.ResponseHash)
}

func TestBuild_IncludeContent(t *testing.T) {
	in := testInput()
	in.IncludeContent = true
	r, err := Build(in, buildTime)
	require.NoError(t, err)

	assert.Equal(t, "What is the capital of France?", r.PromptContent)
	assert.Equal(t, "Paris.", r.ResponseContent)

	ok, err := r.VerifyContent()
	require.NoError(t, err)
	assert.True(t, ok)

	r.ResponseContent = "Lyon."
	ok, err = r.VerifyContent()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuild_ContentDoesNotAffectHash(t *testing.T) {
	withContent := testInput()
	withContent.IncludeContent = true
	hashesOnly := testInput()

	r1, err := Build(withContent, buildTime)
	require.NoError(t, err)
	r2, err := Build(hashesOnly, buildTime)
	require.NoError(t, err)

	assert.Equal(t, r1.ReceiptHash, r2.ReceiptHash,
		"content preservation mode must not change the receipt hash")
}

func TestSignVerify(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	r, err := Build(testInput(), buildTime)
	require.NoError(t, err)

	// Unsigned receipts never verify
	assert.False(t, r.Verify(kp.PublicKey))

	require.NoError(t, r.Sign(kp.PrivateKey))
	assert.True(t, r.IsSigned())
	assert.Len(t, r.Signature, 128)
	assert.True(t, r.Verify(kp.PublicKey))

	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, r.Verify(other.PublicKey))
}

func TestSign_Idempotent(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	r, err := Build(testInput(), buildTime)
	require.NoError(t, err)
	hashBefore := r.ReceiptHash

	require.NoError(t, r.Sign(kp.PrivateKey))
	first := r.Signature
	require.NoError(t, r.Sign(kp.PrivateKey))

	assert.Equal(t, first, r.Signature, "ed25519 is deterministic; re-signing the fixed hash is stable")
	assert.Equal(t, hashBefore, r.ReceiptHash, "re-signing never recomputes the receipt hash")
	assert.True(t, r.Verify(kp.PublicKey))
}

func TestSign_MalformedKey(t *testing.T) {
	r, err := Build(testInput(), buildTime)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Sign("nope"), crypto.ErrInvalidPrivateKey)
}

func TestChainsFrom(t *testing.T) {
	r1, err := Build(testInput(), buildTime)
	require.NoError(t, err)

	in2 := testInput()
	in2.PrevReceiptHash = r1.ReceiptHash
	r2, err := Build(in2, buildTime)
	require.NoError(t, err)

	assert.True(t, r1.ChainsFrom(nil), "no predecessor pointer and no predecessor is a valid chain start")
	assert.True(t, r2.ChainsFrom(r1))
	assert.False(t, r2.ChainsFrom(nil), "a stated predecessor must exist")
	assert.False(t, r1.ChainsFrom(r2))
	assert.False(t, r2.ChainsFrom(r2))
}
