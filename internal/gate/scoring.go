package gate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

const qualityEpsilon = 1e-9

const experimentType = "experiment"

// NoEvidenceReason is reported with Pending when nothing has been collected.
const NoEvidenceReason = "No evidence collected yet"

type Evidence struct {
	Type         string   `json:"type" yaml:"type"`
	Strength     Strength `json:"strength" yaml:"strength"`
	QualityScore float64  `json:"quality_score" yaml:"quality_score"`
}

// ParseEvidence validates a raw evidence row. Rows failing here are skipped by callers.
func ParseEvidence(evidenceType, strength string, quality *float64) (Evidence, error) {
	evidenceType = strings.ToLower(strings.TrimSpace(evidenceType))
	if evidenceType == "" {
		return Evidence{}, errors.New("evidence type is required")
	}
	s, err := ParseStrength(strength)
	if err != nil {
		return Evidence{}, err
	}
	if quality == nil {
		return Evidence{}, errors.New("quality score is required")
	}
	if *quality < 0 || *quality > 1 || math.IsNaN(*quality) {
		return Evidence{}, fmt.Errorf("quality score %v out of range [0,1]", *quality)
	}
	return Evidence{Type: evidenceType, Strength: s, QualityScore: *quality}, nil
}

func EvidenceQuality(ev []Evidence) float64 {
	if len(ev) == 0 {
		return 0
	}
	var sum float64
	for _, e := range ev {
		sum += e.QualityScore
	}
	return sum / float64(len(ev))
}

func CountExperiments(ev []Evidence) int {
	n := 0
	for _, e := range ev {
		if e.Type == experimentType {
			n++
		}
	}
	return n
}

func EvidenceTypes(ev []Evidence) map[string]struct{} {
	types := make(map[string]struct{}, len(ev))
	for _, e := range ev {
		types[e.Type] = struct{}{}
	}
	return types
}

func CountStrengthMix(ev []Evidence) StrengthMix {
	var mix StrengthMix
	for _, e := range ev {
		switch e.Strength {
		case Weak:
			mix.Weak++
		case Medium:
			mix.Medium++
		case Strong:
			mix.Strong++
		}
	}
	return mix
}

func criteriaFor(stage Stage, override *Criteria) (Criteria, error) {
	if override != nil {
		return *override, nil
	}
	c, ok := DefaultCriteria(stage)
	if !ok {
		return Criteria{}, fmt.Errorf("no criteria for stage %q", stage)
	}
	return c, nil
}

// Evaluate checks ev against criteria (or the stage defaults when nil) and
// returns one reason per unmet requirement.
func Evaluate(stage Stage, ev []Evidence, criteria *Criteria) (Status, []string, error) {
	c, err := criteriaFor(stage, criteria)
	if err != nil {
		return "", nil, err
	}
	if len(ev) == 0 {
		return Pending, []string{NoEvidenceReason}, nil
	}

	var reasons []string

	if n := CountExperiments(ev); n < c.MinExperiments {
		reasons = append(reasons, fmt.Sprintf("Insufficient experiments: %d of %d required", n, c.MinExperiments))
	}

	if q := EvidenceQuality(ev); q+qualityEpsilon < c.MinEvidenceQuality {
		reasons = append(reasons, fmt.Sprintf("Evidence quality too low: %.2f (minimum %.2f)", q, c.MinEvidenceQuality))
	}

	if len(ev) < c.MinTotalEvidence {
		reasons = append(reasons, fmt.Sprintf("Insufficient total evidence: %d of %d required", len(ev), c.MinTotalEvidence))
	}

	if missing := missingTypes(ev, c.RequiredEvidenceTypes); len(missing) > 0 {
		reasons = append(reasons, "Missing required evidence types: "+strings.Join(missing, ", "))
	}

	mix := CountStrengthMix(ev)
	for _, s := range strengths {
		if have, want := mix.Get(s), c.StrengthMix.Get(s); have < want {
			reasons = append(reasons, fmt.Sprintf("Insufficient %s evidence: %d of %d required", s, have, want))
		}
	}

	if len(reasons) > 0 {
		return Failed, reasons, nil
	}
	return Passed, nil, nil
}

func missingTypes(ev []Evidence, required []string) []string {
	present := EvidenceTypes(ev)
	var missing []string
	for _, t := range required {
		if _, ok := present[t]; !ok {
			missing = append(missing, t)
		}
	}
	sort.Strings(missing)
	return missing
}

// Readiness component weights; they sum to 1.
const (
	weightExperiments = 0.3
	weightQuality     = 0.3
	weightTotal       = 0.2
	weightTypes       = 0.1
	weightMix         = 0.1
)

// ReadinessScore reports progress toward the criteria in [0,1]. Each component
// is capped at 1 so surplus in one area cannot hide a gap in another.
func ReadinessScore(stage Stage, ev []Evidence, criteria *Criteria) (float64, error) {
	c, err := criteriaFor(stage, criteria)
	if err != nil {
		return 0, err
	}
	if len(ev) == 0 {
		return 0, nil
	}

	score := weightExperiments*ratio(float64(CountExperiments(ev)), float64(c.MinExperiments)) +
		weightQuality*ratio(EvidenceQuality(ev), c.MinEvidenceQuality) +
		weightTotal*ratio(float64(len(ev)), float64(c.MinTotalEvidence)) +
		weightTypes*typeCoverage(ev, c.RequiredEvidenceTypes) +
		weightMix*mixCoverage(CountStrengthMix(ev), c.StrengthMix)

	return math.Min(score, 1), nil
}

func ratio(have, want float64) float64 {
	if want <= 0 {
		return 1
	}
	return math.Min(have/want, 1)
}

func typeCoverage(ev []Evidence, required []string) float64 {
	if len(required) == 0 {
		return 1
	}
	missing := missingTypes(ev, required)
	return float64(len(required)-len(missing)) / float64(len(required))
}

func mixCoverage(have, want StrengthMix) float64 {
	var total float64
	n := 0
	for _, s := range strengths {
		if w := want.Get(s); w > 0 {
			total += ratio(float64(have.Get(s)), float64(w))
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return total / float64(n)
}

// Round3 rounds to three decimals, the precision readiness is reported with.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
