package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/ace-core/internal/ace"
	"github.com/nerrad567/ace-core/internal/api"
	"github.com/nerrad567/ace-core/internal/infrastructure/config"
)

// newClassifyCommand reads firmware output from stdin and prints one JSON
// classification per non-empty line. Useful for checking captured logs.
func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify firmware response lines read from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := enc.Encode(ace.Classify(line)); err != nil {
					return fmt.Errorf("encoding classification: %w", err)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			return nil
		},
	}
}

// newTokenCommand issues a bearer token signed with the configured secret.
func newTokenCommand(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(getConfigPath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.Security.JWT.Secret == "" {
				return fmt.Errorf("security.jwt.secret is not set; authentication is disabled")
			}

			token, err := api.IssueToken(subject, cfg.Security.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "dashboard", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
