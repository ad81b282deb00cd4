package conversation

import "math"

type ClarityLabel string

const (
	ClarityHigh   ClarityLabel = "high"
	ClarityMedium ClarityLabel = "medium"
	ClarityLow    ClarityLabel = "low"
)

type CompletenessLabel string

const (
	Complete     CompletenessLabel = "complete"
	Partial      CompletenessLabel = "partial"
	Insufficient CompletenessLabel = "insufficient"
)

var clarityScores = map[ClarityLabel]float64{
	ClarityHigh:   0.92,
	ClarityMedium: 0.68,
	ClarityLow:    0.38,
}

var completenessScores = map[CompletenessLabel]float64{
	Complete:     1.0,
	Partial:      0.66,
	Insufficient: 0.35,
}

type ScoredLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func clarity(l ClarityLabel) ScoredLabel {
	return ScoredLabel{Label: string(l), Score: clarityScores[l]}
}

func completeness(l CompletenessLabel) ScoredLabel {
	return ScoredLabel{Label: string(l), Score: completenessScores[l]}
}

type QualitySignals struct {
	Clarity       ScoredLabel `json:"clarity"`
	Completeness  ScoredLabel `json:"completeness"`
	DetailScore   float64     `json:"detail_score"`
	Overall       float64     `json:"overall"`
	Suggestions   []string    `json:"suggestions,omitempty"`
	Encouragement string      `json:"encouragement"`
	QualityTags   []string    `json:"quality_tags"`
}

func newQualitySignals(c ClarityLabel, comp CompletenessLabel, detail float64) QualitySignals {
	return QualitySignals{
		Clarity:      clarity(c),
		Completeness: completeness(comp),
		DetailScore:  detail,
		Overall:      round2((clarityScores[c] + completenessScores[comp] + detail) / 3),
		QualityTags:  []string{},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
