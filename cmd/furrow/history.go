package main

import (
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [produce-id]",
	Short: "Show the event journal, optionally for one produce batch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer ledger.Close()

		var events []domain.Event
		if len(args) == 1 {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			events, err = ledger.History(cmd.Context(), id)
			if err != nil {
				return err
			}
		} else {
			events, err = ledger.Events(cmd.Context())
			if err != nil {
				return err
			}
		}
		return render(cmd, events)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
