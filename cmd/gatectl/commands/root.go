package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pscheid92/startupai/internal/platform/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type rootOptions struct {
	output   string
	logLevel string
}

func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Flags live on the returned tree so
// tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "gatectl",
		Short:        "Operator tooling for stage gates and analysis runs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("unsupported output %q, want json or yaml", opts.output)
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		evaluateCmd(opts),
		criteriaCmd(opts),
		migrateCmd(),
		reapOrphansCmd(opts),
	)
	return root
}

func (o *rootOptions) print(w io.Writer, v any) error {
	if o.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func databaseURLFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "database-url", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
}
