package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Identity is the verified signer of an instruction (e.g. a base58 public key).
type Identity string

// Namespace prefixes every record key.
type Namespace string

const (
	NSParticipant Namespace = "participant"
	NSProduce     Namespace = "produce"
	NSDispute     Namespace = "dispute"
	NSProposal    Namespace = "proposal"
	NSVault       Namespace = "vault"
	NSToken       Namespace = "token"
	NSStake       Namespace = "stake"
	NSEvent       Namespace = "event"
)

// Seed tags keep owner-chosen seeds and fixed singleton seeds in disjoint
// spaces within a namespace that holds both.
const (
	tagSingleton byte = 0x00
	tagOwner     byte = 0x01
)

// Seeds for the process-wide singleton accounts.
const (
	seedVault        = "vault"
	seedPaymentVault = "vault_token"
	seedStakeVault   = "stake_vault"
)

// DeriveKey hashes namespace||seed and prefixes the namespace, so any caller
// can recompute the key while keys stay listable per namespace.
func DeriveKey(ns Namespace, seed []byte) string {
	h := sha256.New()
	h.Write([]byte(ns))
	h.Write(seed)
	return string(ns) + "/" + hex.EncodeToString(h.Sum(nil))
}

func taggedSeed(tag byte, seed string) []byte {
	return append([]byte{tag}, seed...)
}

func idSeed(id uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	return buf[:]
}

// ParticipantKey derives the registry key for an identity.
func ParticipantKey(id Identity) string {
	return DeriveKey(NSParticipant, []byte(id))
}

// ProduceKey derives the key for a produce batch.
func ProduceKey(produceID uint64) string {
	return DeriveKey(NSProduce, idSeed(produceID))
}

// DisputeKey derives the key of the (single) dispute attached to a produce.
func DisputeKey(produceID uint64) string {
	return DeriveKey(NSDispute, []byte(ProduceKey(produceID)))
}

// ProposalKey derives the key for a governance proposal.
func ProposalKey(proposalID uint64) string {
	return DeriveKey(NSProposal, idSeed(proposalID))
}

// TokenAccountKey derives the custody account key for an owner. It can never
// equal PaymentVaultKey or StakeVaultKey, whatever the owner is called.
func TokenAccountKey(owner Identity) string {
	return DeriveKey(NSToken, taggedSeed(tagOwner, string(owner)))
}

// StakeKey derives the per-staker stake record key.
func StakeKey(staker Identity) string {
	return DeriveKey(NSStake, []byte(staker))
}

// VaultKey is the singleton vault record key.
func VaultKey() string {
	return DeriveKey(NSVault, []byte(seedVault))
}

// PaymentVaultKey is the custody account holding escrowed settlement funds.
func PaymentVaultKey() string {
	return DeriveKey(NSToken, taggedSeed(tagSingleton, seedPaymentVault))
}

// StakeVaultKey is the custody account holding staked funds.
func StakeVaultKey() string {
	return DeriveKey(NSToken, taggedSeed(tagSingleton, seedStakeVault))
}

// EventKey builds the journal key for an event ID. Event IDs are already unique.
func EventKey(eventID string) string {
	return string(NSEvent) + "/" + eventID
}

// NamespaceOf returns the namespace part of a key.
func NamespaceOf(key string) Namespace {
	ns, _, _ := strings.Cut(key, "/")
	return Namespace(ns)
}
