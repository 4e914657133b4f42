package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI in-process against the ledger file chosen by the test.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useLedgerFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	t.Setenv("FURROW_STORE_DRIVER", "file")
	t.Setenv("FURROW_STORE_PATH", path)
	return path
}

func TestCLI_SettlementRoundTrip(t *testing.T) {
	useLedgerFile(t)

	steps := [][]string{
		{"exec", "register_participant", "farmer", "Ana", "ana@example.org", "--as", "farmer-ana"},
		{"exec", "register_participant", "transporter", "Carl", "", "--as", "truck-carl"},
		{"exec", "register_participant", "retailer", "Finn", "", "--as", "shop-finn"},
		{"exec", "initialize_vault", "--as", "admin"},
		{"exec", "deposit", "shop-finn", "2000", "--as", "admin"},
		{"exec", "log_harvest", "42", "tomato", "500", "0", "90", "", "1000", "200", "--as", "farmer-ana"},
		{"exec", "record_pickup", "42", "4", "60", "--as", "truck-carl"},
		{"exec", "fund_vault", "produce_id=42", "amount=1200", "--as", "shop-finn"},
		{"exec", "record_delivery", "42", "--as", "truck-carl"},
	}
	for _, args := range steps {
		_, err := run(t, append(args, "-o", "text")...)
		require.NoError(t, err, "%v", args)
	}

	out, err := run(t, "exec", "confirm_delivery", "42", "--as", "shop-finn", "-o", "json")
	require.NoError(t, err)
	var receipt domain.Receipt
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	require.NotNil(t, receipt.Settlement)
	assert.Equal(t, uint64(1000), receipt.Settlement.FarmerAmount)

	_, err = run(t, "exec", "confirm_delivery", "42", "--as", "shop-finn", "-o", "text")
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	out, err = run(t, "show", "balance", "farmer-ana", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"farmer-ana","balance":1000}`, out)

	out, err = run(t, "show", "produce", "42", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "status: delivered")

	out, err = run(t, "history", "42", "-o", "json")
	require.NoError(t, err)
	var events []domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	assert.Len(t, events, 5)
}

func TestCLI_Apply(t *testing.T) {
	useLedgerFile(t)
	batch := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(batch, []byte(`
instructions:
  - op: register_participant
    signer: judge-gus
    args: [arbitrator, Gus, ""]
  - op: create_proposal
    signer: judge-gus
    args: [1, "Lower transporter fees"]
  - op: vote_proposal
    signer: judge-gus
    args: [1, true]
`), 0o644))

	_, err := run(t, "apply", batch, "-o", "text")
	require.NoError(t, err)

	out, err := run(t, "show", "proposal", "1", "-o", "json")
	require.NoError(t, err)
	var p domain.Proposal
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, uint64(1), p.VotesFor)
}

func TestCLI_Errors(t *testing.T) {
	useLedgerFile(t)

	_, err := run(t, "exec", "register_participant", "farmer", "Ana", "", "--as", "", "-o", "text")
	assert.ErrorContains(t, err, "--as is required")

	_, err = run(t, "exec", "mint", "--as", "admin", "-o", "text")
	assert.ErrorIs(t, err, domain.ErrUnknownInstruction)

	_, err = run(t, "show", "produce", "abc", "-o", "text")
	assert.ErrorContains(t, err, "invalid id")

	_, err = run(t, "show", "vault", "-o", "text")
	assert.ErrorIs(t, err, domain.ErrVaultNotInitialized)
}

func TestCLI_OpsAndVersion(t *testing.T) {
	useLedgerFile(t)

	out, err := run(t, "ops", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "record_pickup")
	assert.Contains(t, out, "produce_id temp humidity")

	out, err = run(t, "version", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "furrow version dev")
}
