package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pscheid92/startupai/internal/gate"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errGateNotPassed = errors.New("gate not passed")

type evidenceRow struct {
	Type         string   `json:"type" yaml:"type"`
	Strength     string   `json:"strength" yaml:"strength"`
	QualityScore *float64 `json:"quality_score" yaml:"quality_score"`
}

type evaluation struct {
	Stage            gate.Stage  `json:"stage" yaml:"stage"`
	Status           gate.Status `json:"status" yaml:"status"`
	Reasons          []string    `json:"reasons" yaml:"reasons"`
	ReadinessScore   float64     `json:"readiness_score" yaml:"readiness_score"`
	EvidenceCount    int         `json:"evidence_count" yaml:"evidence_count"`
	ExperimentsCount int         `json:"experiments_count" yaml:"experiments_count"`
	Skipped          int         `json:"skipped" yaml:"skipped"`
	NextStage        gate.Stage  `json:"next_stage,omitempty" yaml:"next_stage,omitempty"`
}

func evaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		stageName    string
		file         string
		criteriaFile string
		strict       bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate an evidence file against a stage gate",
		Long: `Evaluate a JSON or YAML list of evidence rows against a stage gate.

Each row needs type, strength and quality_score. Rows that fail validation
are skipped and counted, the same way the server treats stored evidence.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := gate.ParseStage(stageName)
			if err != nil {
				return err
			}

			var rows []evidenceRow
			if err := decodeFile(file, &rows); err != nil {
				return err
			}

			var criteria *gate.Criteria
			if criteriaFile != "" {
				criteria = &gate.Criteria{}
				if err := decodeFile(criteriaFile, criteria); err != nil {
					return err
				}
			}

			res, err := evaluate(stage, rows, criteria)
			if err != nil {
				return err
			}
			if err := opts.print(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if strict && res.Status != gate.Passed {
				return fmt.Errorf("%w: %s is %s", errGateNotPassed, stage, res.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stageName, "stage", "", "gate stage (DESIRABILITY, FEASIBILITY, VIABILITY, SCALE)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "evidence file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&criteriaFile, "criteria", "", "optional criteria file overriding the stage defaults")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero unless the gate passes")
	_ = cmd.MarkFlagRequired("stage")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func evaluate(stage gate.Stage, rows []evidenceRow, criteria *gate.Criteria) (*evaluation, error) {
	ev := make([]gate.Evidence, 0, len(rows))
	skipped := 0
	for i, r := range rows {
		e, err := gate.ParseEvidence(r.Type, r.Strength, r.QualityScore)
		if err != nil {
			slog.Warn("Skipping invalid evidence row", "row", i, "error", err)
			skipped++
			continue
		}
		ev = append(ev, e)
	}

	status, reasons, err := gate.Evaluate(stage, ev, criteria)
	if err != nil {
		return nil, err
	}
	score, err := gate.ReadinessScore(stage, ev, criteria)
	if err != nil {
		return nil, err
	}
	if reasons == nil {
		reasons = []string{}
	}

	res := &evaluation{
		Stage:            stage,
		Status:           status,
		Reasons:          reasons,
		ReadinessScore:   gate.Round3(score),
		EvidenceCount:    len(ev),
		ExperimentsCount: gate.CountExperiments(ev),
		Skipped:          skipped,
	}
	if gate.CanProgress(stage, status) {
		res.NextStage, _ = gate.NextStage(stage)
	}
	return res, nil
}

// decodeFile picks the decoder by extension.
func decodeFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, dst)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, dst)
	default:
		return fmt.Errorf("unsupported file type %q, want .json, .yaml or .yml", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
