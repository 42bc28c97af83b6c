package admin

import (
	"fmt"

	"github.com/cloo-solutions/kbman/internal/config"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command for applying schema migrations
// without starting the server.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
		},
	}
}
