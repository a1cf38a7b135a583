package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cmdReconcile = &cobra.Command{
	Use:   "reconcile",
	Short: "Replay every wallet's ledger and compare it with the stored balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, rootLog)
		if err != nil {
			return err
		}
		defer a.close()
		checked, mismatched, err := a.ledger.ReconcileAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "checked %d wallets, %d mismatched\n", checked, len(mismatched))
		if len(mismatched) > 0 {
			return fmt.Errorf("wallets out of balance: %v", mismatched)
		}
		return nil
	},
}

func init() {
	cmdRoot.AddCommand(cmdReconcile)
}
