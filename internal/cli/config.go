package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *App) configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}

	test := &cobra.Command{
		Use:   "test",
		Short: "Validate and print effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			// LoadConfig уже провалидировал конфиг в PersistentPreRunE
			c := *a.cfg
			c.Auth.SessionSecret = mask(c.Auth.SessionSecret)
			c.Redis.Password = mask(c.Redis.Password)
			c.Database.URL = mask(c.Database.URL)
			if a.output == "json" {
				return a.printJSON(c)
			}
			fmt.Fprintf(a.out, "config OK\napi: %s (timeout %v)\nrollback: %s\nread attempts: %d\nsession file: %s\n",
				c.API.BaseURL, c.API.Timeout, c.Reconcile.Rollback, c.Reliability.ReadAttempts, c.Auth.SessionFile)
			return nil
		},
	}

	cmd.AddCommand(test)
	return cmd
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", 8)
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
