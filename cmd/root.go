package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/crown_ledger/config"
	"github.com/crown_ledger/logging"
)

var flagRoot struct {
	EnvFile string
}

var (
	cfg     *config.Config
	rootLog zerolog.Logger
)

var cmdRoot = &cobra.Command{
	Use:           "crown-ledger",
	Short:         "Escrow wallet ledger with upline commission",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if flagRoot.EnvFile != "" {
			files = append(files, flagRoot.EnvFile)
		}
		c, err := config.Load(files...)
		if err != nil {
			return err
		}
		cfg = c
		rootLog = logging.New(cfg.Log, os.Stdout)
		logging.Setup(rootLog)
		return nil
	},
}

func init() {
	cmdRoot.PersistentFlags().StringVar(&flagRoot.EnvFile, "env-file", "", "dotenv file to load before the environment (default .env)")
}

func Execute() {
	if err := cmdRoot.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
