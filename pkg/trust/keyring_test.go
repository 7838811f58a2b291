package trust

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonate-labs/trust-receipts-go/pkg/crypto"
	"github.com/sonate-labs/trust-receipts-go/pkg/receipt"
)

func TestKeyring_FleetVerification(t *testing.T) {
	master, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	ring := NewKeyring()
	agents := map[string]*Service{}
	for _, id := range []string{"agent-a", "agent-b"} {
		kp, err := crypto.DeriveAgentKeyPair(master.PrivateKey, id)
		require.NoError(t, err)
		require.NoError(t, ring.Add(id, kp.PublicKey))
		agents[id], err = New(WithKeyPair(kp), WithAgentID(id))
		require.NoError(t, err)
	}

	for id, s := range agents {
		r, err := s.CreateReceipt(context.Background(), ReceiptOptions{SessionID: "s1"})
		require.NoError(t, err)
		assert.True(t, ring.VerifyReceipt(r), "receipt from %s verifies via keyring", id)
	}
}

func TestKeyring_UnknownAgent(t *testing.T) {
	s := newService(t, WithAgentID("agent-x"))
	r, err := s.CreateReceipt(context.Background(), ReceiptOptions{SessionID: "s1"})
	require.NoError(t, err)

	ring := NewKeyring()
	assert.False(t, ring.VerifyReceipt(r))

	require.NoError(t, ring.Add("agent-x", s.PublicKey()))
	assert.True(t, ring.VerifyReceipt(r))

	ring.Remove("agent-x")
	assert.False(t, ring.VerifyReceipt(r))
}

func TestKeyring_NoAgentID(t *testing.T) {
	s := newService(t)
	r, err := s.CreateReceipt(context.Background(), ReceiptOptions{SessionID: "s1"})
	require.NoError(t, err)
	require.Nil(t, r.AgentID)

	ring := NewKeyring()
	require.NoError(t, ring.Add("agent-x", s.PublicKey()))
	assert.False(t, ring.VerifyReceipt(r), "anonymous receipts never match a keyring entry")
	assert.False(t, ring.VerifyReceipt(nil))
}

func TestKeyring_WrongKey(t *testing.T) {
	s := newService(t, WithAgentID("agent-x"))
	other := newService(t)
	r, err := s.CreateReceipt(context.Background(), ReceiptOptions{SessionID: "s1"})
	require.NoError(t, err)

	ring := NewKeyring()
	require.NoError(t, ring.Add("agent-x", other.PublicKey()))
	assert.False(t, ring.VerifyReceipt(r))
}

func TestKeyring_AddValidation(t *testing.T) {
	ring := NewKeyring()
	assert.Error(t, ring.Add("", "aa"))
	assert.Error(t, ring.Add("agent-x", "not-hex"))
	assert.Error(t, ring.Add("agent-x", "abcd"))

	_, ok := ring.Lookup("agent-x")
	assert.False(t, ok)
}

func TestKeyring_VerifyOnlyService(t *testing.T) {
	signer := newService(t, WithAgentID("agent-x"))
	r, err := signer.CreateReceipt(context.Background(), ReceiptOptions{SessionID: "s1"})
	require.NoError(t, err)

	verifier, err := New(WithKeyPair(crypto.KeyPair{PublicKey: signer.PublicKey()}))
	require.NoError(t, err)
	assert.True(t, verifier.VerifyReceipt(r))

	_, err = verifier.CreateReceipt(context.Background(), ReceiptOptions{SessionID: "s1"})
	assert.ErrorIs(t, err, crypto.ErrInvalidPrivateKey)

	report := verifier.VerifyChain([]*receipt.SignedReceipt{r})
	assert.True(t, report.Valid)
}
