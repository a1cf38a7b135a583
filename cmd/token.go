package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crown_ledger/handler"
	"github.com/crown_ledger/model"
)

var flagToken struct {
	Account uint64
	Role    string
	TTL     time.Duration
}

var cmdToken = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for an account or an operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		role := model.Role(flagToken.Role)
		switch role {
		case model.RoleUser, model.RoleAdmin, model.RoleSystem:
		default:
			return fmt.Errorf("unknown role %q", flagToken.Role)
		}
		tok, err := handler.NewTokenManager(cfg.JWTSecret, flagToken.TTL).Issue(model.Actor{AccountID: flagToken.Account, Role: role})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	cmdRoot.AddCommand(cmdToken)
	cmdToken.Flags().Uint64Var(&flagToken.Account, "account", 0, "Account id (subject)")
	cmdToken.Flags().StringVar(&flagToken.Role, "role", string(model.RoleUser), "user, admin or system")
	cmdToken.Flags().DurationVar(&flagToken.TTL, "ttl", time.Hour, "Token lifetime")
}
