package domain_test

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduceKey_MatchesIndependentDerivation(t *testing.T) {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], 42)
	sum := sha256.Sum256(append([]byte("produce"), seed[:]...))

	assert.Equal(t, "produce/"+hex.EncodeToString(sum[:]), domain.ProduceKey(42))
}

func TestKeys_AreDeterministicAndDistinct(t *testing.T) {
	assert.Equal(t, domain.ParticipantKey("alice"), domain.ParticipantKey("alice"))
	assert.NotEqual(t, domain.ParticipantKey("alice"), domain.ParticipantKey("bob"))

	// Same numeric seed, different namespaces.
	assert.NotEqual(t, domain.ProduceKey(7), domain.ProposalKey(7))
	assert.NotEqual(t, domain.PaymentVaultKey(), domain.StakeVaultKey())
	assert.NotEqual(t, domain.DisputeKey(7), domain.DisputeKey(8))
}

func TestNamespaceOf(t *testing.T) {
	assert.Equal(t, domain.NSParticipant, domain.NamespaceOf(domain.ParticipantKey("alice")))
	assert.Equal(t, domain.NSToken, domain.NamespaceOf(domain.PaymentVaultKey()))
	assert.Equal(t, domain.NSEvent, domain.NamespaceOf(domain.EventKey("abc")))
}

func TestRole_TextRoundTrip(t *testing.T) {
	for _, r := range domain.Roles {
		text, err := r.MarshalText()
		require.NoError(t, err)

		var parsed domain.Role
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, r, parsed)
	}

	_, err := domain.ParseRole("landlord")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	assert.False(t, domain.Role(0).Valid())
	assert.False(t, domain.Role(99).Valid())
}

func TestError_MatchesByCode(t *testing.T) {
	err := domain.ErrInvalidStatus.With("ConfirmDelivery", "status %s", domain.StatusHarvested)

	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.NotErrorIs(t, err, domain.ErrAlreadySettled)
	assert.Equal(t, domain.KindState, domain.KindOf(err))
	assert.Equal(t, "InvalidStatus", domain.CodeOf(err))
	assert.Contains(t, err.Error(), "ConfirmDelivery")
}

func TestError_WrapKeepsCause(t *testing.T) {
	err := domain.ErrUnauthorized.Wrap("ResolveDispute", domain.ErrNotRegistered.With("", "carol"))

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

	assert.Equal(t, domain.ErrorKind(""), domain.KindOf(errors.New("disk on fire")))
}

func TestProduceStatus_Disputable(t *testing.T) {
	assert.False(t, domain.StatusHarvested.Disputable())
	assert.True(t, domain.StatusPickedUp.Disputable())
	assert.True(t, domain.StatusInTransit.Disputable())
	assert.True(t, domain.StatusDelivered.Disputable())
	assert.True(t, domain.StatusQualityVerified.Disputable())
	assert.False(t, domain.StatusDisputed.Disputable())
}

func TestTokenAccount_DebitCredit(t *testing.T) {
	acct := domain.TokenAccount{Owner: "alice", Balance: 10}

	require.NoError(t, acct.Debit(4))
	assert.Equal(t, uint64(6), acct.Balance)

	assert.ErrorIs(t, acct.Debit(7), domain.ErrInsufficientFunds)
	assert.Equal(t, uint64(6), acct.Balance)

	acct.Balance = ^uint64(0) - 1
	assert.ErrorIs(t, acct.Credit(2), domain.ErrOverflow)
}

func TestTokenAccountKey_NeverMatchesVaultAccounts(t *testing.T) {
	for _, owner := range []domain.Identity{"vault", "vault_token", "stake_vault", "\x00vault_token"} {
		assert.NotEqual(t, domain.PaymentVaultKey(), domain.TokenAccountKey(owner), owner)
		assert.NotEqual(t, domain.StakeVaultKey(), domain.TokenAccountKey(owner), owner)
	}

	sum := sha256.Sum256(append([]byte("token\x01"), "alice"...))
	assert.Equal(t, "token/"+hex.EncodeToString(sum[:]), domain.TokenAccountKey("alice"))

	sum = sha256.Sum256(append([]byte("token\x00"), "vault_token"...))
	assert.Equal(t, "token/"+hex.EncodeToString(sum[:]), domain.PaymentVaultKey())
}
