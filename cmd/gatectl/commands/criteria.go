package commands

import (
	"github.com/pscheid92/startupai/internal/gate"
	"github.com/spf13/cobra"
)

type stageCriteria struct {
	Stage         gate.Stage `json:"stage" yaml:"stage"`
	gate.Criteria `yaml:",inline"`
}

func criteriaCmd(opts *rootOptions) *cobra.Command {
	var stageName string

	cmd := &cobra.Command{
		Use:   "criteria",
		Short: "Print the default gate criteria",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := gate.Stages
			if stageName != "" {
				stage, err := gate.ParseStage(stageName)
				if err != nil {
					return err
				}
				stages = []gate.Stage{stage}
			}

			out := make([]stageCriteria, 0, len(stages))
			for _, s := range stages {
				c, _ := gate.DefaultCriteria(s)
				out = append(out, stageCriteria{Stage: s, Criteria: c})
			}
			return opts.print(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&stageName, "stage", "", "print one stage only")
	return cmd
}
