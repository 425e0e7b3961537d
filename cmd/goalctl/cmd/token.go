package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/goaltrack/internal/middleware"
)

// TokenCmd mints a bearer token for local testing against the API.
func TokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.IsProduction() {
				return errors.New("refusing to sign tokens in production")
			}

			token, err := middleware.NewAuthenticator(cfg.JWTSecret).Sign(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	tokenCmd.Flags().StringVar(&userID, "user", "", "user ID to put in the user_id claim (required)")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("user")
	return tokenCmd
}
