package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kaku/pkg/auth"
)

var (
	tokenScribe string
	tokenOrg    string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed scribe token for local use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := auth.NewValidator(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		if err != nil {
			return err
		}
		token, err := v.Issue(tokenScribe, tokenOrg, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenScribe, "scribe", "", "scribe id (token subject)")
	tokenCmd.Flags().StringVar(&tokenOrg, "org", "", "organization id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("scribe")
	rootCmd.AddCommand(tokenCmd)
}
