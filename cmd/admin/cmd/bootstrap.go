package cmd

import (
	"fmt"

	"github.com/Kyushi/pemoi/internal/db"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/Kyushi/pemoi/internal/service"
	"github.com/spf13/cobra"
)

func BootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the admin account and the catchall category if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(database) }()

			err = service.Bootstrap(cmd.Context(),
				repository.NewUserRepository(database),
				repository.NewCategoryRepository(database),
				cfg.AdminEmail,
			)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "sentinels in place")
			return nil
		},
	}
}
