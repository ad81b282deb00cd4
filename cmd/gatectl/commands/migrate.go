package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/startupai/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

const connectTimeout = 10 * time.Second

var errDatabaseURLRequired = errors.New("database URL required (--database-url or DATABASE_URL env)")

func migrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connect(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.RunMigrationsWithLock(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	databaseURLFlag(cmd, &databaseURL)
	return cmd
}

func connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errDatabaseURLRequired
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return postgres.Connect(ctx, databaseURL, nil)
}
