package main

import (
	"fmt"
	"time"

	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/config"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		orgID      string
		role       string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for local testing",
		Long:  "Signs a JWT with the configured secret. Paste it into an Authorization: Bearer header.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, configPath, userID, orgID, role)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&orgID, "org", "default", "organization ID")
	cmd.Flags().StringVar(&role, "role", auth.RoleMember, "member, manager or admin")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runToken(cmd *cobra.Command, configPath, userID, orgID, role string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	tok, exp, err := issuer.Issue(userID, orgID, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
	return nil
}
