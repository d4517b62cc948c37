package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Kyushi/pemoi/internal/config"
	"github.com/Kyushi/pemoi/internal/db"
	"github.com/Kyushi/pemoi/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

// EnvCmd prints the effective configuration without secrets.
func EnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the effective configuration, secrets omitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(loadConfig().Sanitized())
		},
	}
}

// loadConfig reads the server's configuration and sets up logging.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.LogLevel, cfg.SentryDSN)
	return cfg
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}
