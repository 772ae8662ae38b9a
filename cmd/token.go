package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gigcal/config"
	"gigcal/utils"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		admin   bool
		ttl     time.Duration
		secret  string
	)

	c := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the availability API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.LoadConfig()
				if err != nil {
					return err
				}
				secret = cfg.JWTSecret
			}
			if secret == "" {
				return errors.New("JWT_SECRET is not configured; pass --secret")
			}
			if subject == "" {
				return errors.New("--subject is required")
			}
			role := ""
			if admin {
				role = utils.RoleAdmin
			}
			tok, err := utils.GenerateToken(subject, role, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	c.Flags().StringVar(&subject, "subject", "", "token subject (user or operator id)")
	c.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	c.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	c.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to the configured JWT_SECRET)")
	return c
}
