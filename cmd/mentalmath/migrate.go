package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/mentalmath/internal/account"
	"github.com/at-ishikawa/mentalmath/internal/database"
	"github.com/at-ishikawa/mentalmath/schemas"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, _ account.State) error {
				if app.adapters.DB == nil {
					return errors.New("migrate requires storage.backend: sql")
				}
				applied, err := database.Migrate(ctx, app.adapters.DB, schemas.Migrations, app.logger)
				if err != nil {
					return fmt.Errorf("database.Migrate() > %w", err)
				}
				if len(applied) == 0 {
					_, _ = fmt.Fprintln(app.stdout, "Database is up to date.")
					return nil
				}
				for _, name := range applied {
					_, _ = fmt.Fprintf(app.stdout, "Applied %s\n", name)
				}
				return nil
			})
		},
	}
}
