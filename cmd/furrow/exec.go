package main

import (
	"fmt"
	"strings"

	"github.com/furrow-ag/furrow"
	"github.com/furrow-ag/furrow/internal/cli"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <op> [args...]",
	Short: "Submit one instruction",
	Long: `Submits one instruction signed by --as. Arguments are positional, in the
order listed by 'furrow ops', or all given as name=value.

  furrow exec register_participant farmer Ana ana@example.org --as farmer-ana
  furrow exec fund_vault produce_id=42 amount=1200 --as shop-finn`,
	Args: cobra.MinimumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var ops []string
		for _, op := range furrow.Ops() {
			ops = append(ops, string(op))
		}
		return ops, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, _ := cmd.Flags().GetString("as")
		if signer == "" {
			return fmt.Errorf("--as is required")
		}

		ledger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer ledger.Close()

		ins, err := cli.ParseInstruction(args[0], domain.Identity(signer), args[1:])
		if err != nil {
			return err
		}
		receipt, err := ledger.Execute(cmd.Context(), ins)
		if err != nil {
			return err
		}
		return render(cmd, receipt)
	},
}

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List instructions and their parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := make(map[string][]string)
		for _, op := range furrow.Ops() {
			params, _ := furrow.Params(op)
			out[string(op)] = params
		}

		format, _ := cmd.Flags().GetString("output")
		if format != cli.FormatText {
			return render(cmd, out)
		}
		for _, op := range furrow.Ops() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", op, strings.Join(out[string(op)], " "))
		}
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <batch.yaml>",
	Short: "Submit a batch of instructions from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := cli.LoadBatch(args[0])
		if err != nil {
			return err
		}
		if cont, _ := cmd.Flags().GetBool("continue-on-error"); cont {
			batch.ContinueOnError = true
		}

		ledger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer ledger.Close()

		outcomes, applyErr := cli.Apply(cmd.Context(), ledger, batch)
		if err := render(cmd, outcomes); err != nil {
			return err
		}
		return applyErr
	},
}

func init() {
	execCmd.Flags().String("as", "", "Identity signing the instruction")
	applyCmd.Flags().Bool("continue-on-error", false, "Keep applying after a rejected instruction")

	rootCmd.AddCommand(execCmd, opsCmd, applyCmd)
}
