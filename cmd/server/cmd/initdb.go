package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/rbac_auth/internal/app"
	"github.com/Skotchmaster/rbac_auth/internal/db"
)

var seedInput app.SeedInput

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create tables and seed the administrator",
	Long: `Runs the schema migration and creates an administrator account with the
admin role. Existing rows are kept, so the command can be re-run safely.
The password may also be given through ADMIN_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := loadConfig()
		if err != nil {
			return err
		}
		if seedInput.Password == "" {
			seedInput.Password = os.Getenv("ADMIN_PASSWORD")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(gdb); err != nil {
				l.Error("db close error", "error", err)
			}
		}()

		if err := db.Migrate(ctx, gdb); err != nil {
			return err
		}
		l.Info("schema migrated")

		user, err := app.Seed(ctx, gdb, seedInput, l)
		if err != nil {
			return err
		}
		l.Info("initdb complete", "admin_id", user.ID)
		return nil
	},
}

func init() {
	initdbCmd.Flags().StringVar(&seedInput.Username, "username", "admin", "Administrator username")
	initdbCmd.Flags().StringVar(&seedInput.Password, "password", "", "Administrator password (env: ADMIN_PASSWORD)")
	initdbCmd.Flags().StringVar(&seedInput.Name, "name", "Administrator", "Administrator display name")
	initdbCmd.Flags().StringVar(&seedInput.Email, "email", "", "Administrator email")
}
