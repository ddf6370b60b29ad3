package main

import (
	"fmt"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/ArowuTest/loyalty-ledger/internal/middleware"
	"github.com/ArowuTest/loyalty-ledger/internal/utils"
	"github.com/spf13/cobra"
)

func newTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	var role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for a service, admin or member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case middleware.RoleMember, middleware.RoleService, middleware.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			signed, err := utils.GenerateJWT(cfg.JWT.Secret, args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", middleware.RoleService, "token role: member|service|admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}
