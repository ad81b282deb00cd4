package commands

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pscheid92/startupai/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

const orphanedMessage = "analysis abandoned: server stopped before the run finished"

type reapResult struct {
	Cutoff time.Time `json:"cutoff" yaml:"cutoff"`
	DryRun bool      `json:"dry_run" yaml:"dry_run"`
	Runs   int64     `json:"runs" yaml:"runs"`
}

// reapOrphansCmd fails runs left queued or running by a server that exited
// without draining its worker pool.
func reapOrphansCmd(opts *rootOptions) *cobra.Command {
	var (
		databaseURL string
		olderThan   time.Duration
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "reap-orphans",
		Short: "Fail analysis runs abandoned by a stopped server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			pool, err := connect(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := postgres.NewAnalysisRepo(pool)
			res := reapResult{Cutoff: time.Now().UTC().Add(-olderThan), DryRun: dryRun}

			if dryRun {
				res.Runs, err = repo.CountStale(cmd.Context(), res.Cutoff)
			} else {
				res.Runs, err = repo.FailStale(cmd.Context(), res.Cutoff, orphanedMessage)
			}
			if err != nil {
				return err
			}

			slog.Info("Reaped orphaned analysis runs", "runs", res.Runs, "dry_run", dryRun, "cutoff", res.Cutoff)
			return opts.print(cmd.OutOrStdout(), res)
		},
	}

	databaseURLFlag(cmd, &databaseURL)
	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "only runs created before now minus this age")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count matching runs without changing them")
	return cmd
}
