package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcrud/mcrud/internal/web/auth"
)

// NewTokenCommand creates the token command
func NewTokenCommand(opts *rootOptions) *cobra.Command {
	var scopes []string

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for the mutating routes",
		Long:  "Sign a token with auth.jwt_secret. It is valid for auth.token_ttl.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}

			token, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).GenerateToken(args[0], scopes)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scope to embed in the token (repeatable)")

	return cmd
}
