package main

import (
	"fmt"
	"strconv"

	"github.com/furrow-ag/furrow"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Inspect ledger records",
}

// reader builds a show subcommand around one lookup.
func reader(use, short string, nargs int, get func(cmd *cobra.Command, l *furrow.Ledger, args []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			v, err := get(cmd, ledger, args)
			if err != nil {
				return err
			}
			return render(cmd, v)
		},
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func init() {
	showCmd.AddCommand(
		reader("participant <identity>", "Show a registered participant", 1,
			func(cmd *cobra.Command, l *furrow.Ledger, args []string) (any, error) {
				return l.GetParticipant(cmd.Context(), domain.Identity(args[0]))
			}),
		reader("produce <id>", "Show a produce batch", 1,
			func(cmd *cobra.Command, l *furrow.Ledger, args []string) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				return l.GetProduce(cmd.Context(), id)
			}),
		reader("dispute <produce-id>", "Show the dispute of a produce batch", 1,
			func(cmd *cobra.Command, l *furrow.Ledger, args []string) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				return l.GetDispute(cmd.Context(), id)
			}),
		reader("proposal <id>", "Show a governance proposal", 1,
			func(cmd *cobra.Command, l *furrow.Ledger, args []string) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				return l.GetProposal(cmd.Context(), id)
			}),
		reader("balance <identity>", "Show the custody balance of an identity", 1,
			func(cmd *cobra.Command, l *furrow.Ledger, args []string) (any, error) {
				bal, err := l.Balance(cmd.Context(), domain.Identity(args[0]))
				if err != nil {
					return nil, err
				}
				return map[string]any{"owner": args[0], "balance": bal}, nil
			}),
		reader("stake <identity>", "Show the stake of an identity", 1,
			func(cmd *cobra.Command, l *furrow.Ledger, args []string) (any, error) {
				return l.GetStake(cmd.Context(), domain.Identity(args[0]))
			}),
		reader("vault", "Show the escrow vault and its balances", 0,
			func(cmd *cobra.Command, l *furrow.Ledger, _ []string) (any, error) {
				v, err := l.GetVault(cmd.Context())
				if err != nil {
					return nil, err
				}
				payment, err := l.VaultBalance(cmd.Context())
				if err != nil {
					return nil, err
				}
				stake, err := l.StakeVaultBalance(cmd.Context())
				if err != nil {
					return nil, err
				}
				return map[string]any{"vault": v, "payment_balance": payment, "stake_balance": stake}, nil
			}),
		reader("stats", "Summarize the ledger", 0,
			func(cmd *cobra.Command, l *furrow.Ledger, _ []string) (any, error) {
				return l.Stats(cmd.Context())
			}),
	)

	rootCmd.AddCommand(showCmd)
}
