package cmd

import (
	"github.com/spf13/cobra"
)

var cmdMigrate = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed the default rate table",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, rootLog)
		if err != nil {
			return err
		}
		defer a.close()
		t, err := a.migrate(cmd.Context(), cfg.Commission.DefaultRates)
		if err != nil {
			return err
		}
		rootLog.Info().Int64("rate_version", t.Version).Str("rates", t.Rates.String()).Msg("migration done")
		return nil
	},
}

func init() {
	cmdRoot.AddCommand(cmdMigrate)
}
