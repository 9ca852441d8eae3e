package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"before_you_sign/internal/platform/config"
	jwtmw "before_you_sign/internal/platform/jwt"
)

func tokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the /v1 API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// APIキーは不要なので検証なしで読み込む
			data, err := os.ReadFile(*configPath)
			if err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			cfg, err := config.Parse(data)
			if err != nil {
				return err
			}

			token, err := mintToken(cfg, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, e.g. the client name (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func mintToken(cfg *config.Config, subject string, ttl time.Duration) (string, error) {
	if cfg.Auth.JWTSecret == "" {
		return "", errors.New("auth.jwt_secret is not set; the API is open and needs no token")
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}
	return jwtmw.NewGenerator(cfg.Auth.JWTSecret, ttl).GenerateToken(subject)
}
