package gate

import (
	"fmt"
	"strings"
)

type Stage string

const (
	Desirability Stage = "DESIRABILITY"
	Feasibility  Stage = "FEASIBILITY"
	Viability    Stage = "VIABILITY"
	Scale        Stage = "SCALE"
)

// Stages lists the gates in progression order.
var Stages = []Stage{Desirability, Feasibility, Viability, Scale}

// ParseStage accepts a stage name in any case.
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Stages {
		if stage == known {
			return stage, nil
		}
	}
	return "", fmt.Errorf("invalid stage: %s. Must be DESIRABILITY, FEASIBILITY, VIABILITY, or SCALE", s)
}

type Status string

const (
	Passed  Status = "Passed"
	Failed  Status = "Failed"
	Pending Status = "Pending"
)

type Strength string

const (
	Weak   Strength = "weak"
	Medium Strength = "medium"
	Strong Strength = "strong"
)

var strengths = []Strength{Weak, Medium, Strong}

func ParseStrength(s string) (Strength, error) {
	strength := Strength(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range strengths {
		if strength == known {
			return strength, nil
		}
	}
	return "", fmt.Errorf("invalid evidence strength %q", s)
}

// StrengthMix counts evidence per strength. Used both as a tally and as a requirement.
type StrengthMix struct {
	Weak   int `json:"weak" yaml:"weak"`
	Medium int `json:"medium" yaml:"medium"`
	Strong int `json:"strong" yaml:"strong"`
}

func (m StrengthMix) Get(s Strength) int {
	switch s {
	case Weak:
		return m.Weak
	case Medium:
		return m.Medium
	case Strong:
		return m.Strong
	}
	return 0
}

type Criteria struct {
	MinExperiments        int         `json:"min_experiments" yaml:"min_experiments"`
	MinEvidenceQuality    float64     `json:"min_evidence_quality" yaml:"min_evidence_quality"`
	MinTotalEvidence      int         `json:"min_total_evidence" yaml:"min_total_evidence"`
	RequiredEvidenceTypes []string    `json:"required_evidence_types" yaml:"required_evidence_types"`
	StrengthMix           StrengthMix `json:"strength_mix" yaml:"strength_mix"`
}

var defaultCriteria = map[Stage]Criteria{
	Desirability: {
		MinExperiments:        5,
		MinEvidenceQuality:    0.7,
		MinTotalEvidence:      10,
		RequiredEvidenceTypes: []string{"interview", "analytics", "experiment"},
		StrengthMix:           StrengthMix{Weak: 0, Medium: 3, Strong: 2},
	},
	Feasibility: {
		MinExperiments:        8,
		MinEvidenceQuality:    0.75,
		MinTotalEvidence:      15,
		RequiredEvidenceTypes: []string{"interview", "analytics", "experiment", "prototype"},
		StrengthMix:           StrengthMix{Weak: 0, Medium: 5, Strong: 3},
	},
	Viability: {
		MinExperiments:        12,
		MinEvidenceQuality:    0.8,
		MinTotalEvidence:      20,
		RequiredEvidenceTypes: []string{"interview", "analytics", "experiment", "financial"},
		StrengthMix:           StrengthMix{Weak: 0, Medium: 6, Strong: 5},
	},
	Scale: {
		MinExperiments:        20,
		MinEvidenceQuality:    0.85,
		MinTotalEvidence:      30,
		RequiredEvidenceTypes: []string{"interview", "analytics", "experiment", "financial"},
		StrengthMix:           StrengthMix{Weak: 0, Medium: 8, Strong: 10},
	},
}

// DefaultCriteria returns a copy of the built-in thresholds for stage.
func DefaultCriteria(stage Stage) (Criteria, bool) {
	c, ok := defaultCriteria[stage]
	if !ok {
		return Criteria{}, false
	}
	c.RequiredEvidenceTypes = append([]string(nil), c.RequiredEvidenceTypes...)
	return c, true
}

// NextStage returns the stage after s, or false when s is final or unknown.
func NextStage(s Stage) (Stage, bool) {
	for i, known := range Stages {
		if known == s && i+1 < len(Stages) {
			return Stages[i+1], true
		}
	}
	return "", false
}

func CanProgress(s Stage, status Status) bool {
	if status != Passed {
		return false
	}
	_, ok := NextStage(s)
	return ok
}
