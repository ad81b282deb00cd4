package analysis

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	summarySentences = 3
	bulletLimit      = 6
	evidenceLimit    = 3
	summaryFallback  = 350
	evidenceTitleLen = 90
)

type InsightSummary struct {
	ID         string `json:"id"`
	Headline   string `json:"headline"`
	Confidence string `json:"confidence"`
	Support    string `json:"support"`
}

type EvidenceItem struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Source   string   `json:"source"`
	Strength string   `json:"strength"`
	Tags     []string `json:"tags"`
}

type Report struct {
	Title       string    `json:"title"`
	ReportType  string    `json:"report_type"`
	Content     string    `json:"content"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

type EntrepreneurBrief struct {
	ProblemDescription     string             `json:"problem_description"`
	SolutionDescription    string             `json:"solution_description"`
	UniqueValueProposition string             `json:"unique_value_proposition"`
	DifferentiationFactors []string           `json:"differentiation_factors"`
	BusinessStage          string             `json:"business_stage"`
	RecommendedNextSteps   []string           `json:"recommended_next_steps"`
	AIConfidenceScores     map[string]float64 `json:"ai_confidence_scores"`
	ValidationFlags        []string           `json:"validation_flags"`
}

type QualitySignals struct {
	AnalysisConfidence float64  `json:"analysis_confidence"`
	EvidenceStrength   float64  `json:"evidence_strength"`
	InsightDepth       float64  `json:"insight_depth"`
	QualityTags        []string `json:"quality_tags"`
}

type StageMetric struct {
	Stage    string  `json:"stage"`
	Coverage float64 `json:"coverage"`
	Quality  float64 `json:"quality"`
}

// Payload is the structured analysis document returned to clients and stored
// with background runs.
type Payload struct {
	AnalysisID        string            `json:"analysis_id"`
	RunStartedAt      time.Time         `json:"run_started_at"`
	Summary           string            `json:"summary"`
	InsightSummaries  []InsightSummary  `json:"insight_summaries"`
	EvidenceItems     []EvidenceItem    `json:"evidence_items"`
	Report            Report            `json:"report"`
	EntrepreneurBrief EntrepreneurBrief `json:"entrepreneur_brief"`
	RawOutput         string            `json:"raw_output"`
	Inputs            Inputs            `json:"inputs"`
	UserID            string            `json:"user_id"`
	QualitySignals    QualitySignals    `json:"quality_signals"`
	StageMetrics      []StageMetric     `json:"stage_metrics"`
}

// BuildPayload derives summary, insights, evidence and quality signals from
// the raw crew output.
func BuildPayload(raw string, in Inputs, userID, analysisID string, now time.Time) *Payload {
	summary := ExtractSentences(raw, summarySentences)
	bullets := ExtractBullets(raw, bulletLimit)

	if summary == "" && raw != "" {
		summary = truncate(raw, summaryFallback)
	}
	if len(bullets) == 0 && summary != "" {
		bullets = []string{summary}
	}

	insights := make([]InsightSummary, 0, len(bullets))
	for _, b := range bullets {
		insights = append(insights, InsightSummary{
			ID:         uuid.NewString(),
			Headline:   b,
			Confidence: "medium",
			Support:    "Derived from CrewAI synthesis",
		})
	}

	top := bullets[:min(len(bullets), evidenceLimit)]
	evidence := make([]EvidenceItem, 0, len(top))
	for _, b := range top {
		evidence = append(evidence, EvidenceItem{
			ID:       uuid.NewString(),
			Title:    truncate(b, evidenceTitleLen),
			Content:  b,
			Source:   "CrewAI synthesis",
			Strength: "medium",
			Tags:     []string{"ai_generated", "crew_analysis"},
		})
	}

	question := in.StrategicQuestion
	if question == "" {
		question = "Strategic Focus"
	}
	content := raw
	if content == "" {
		content = summary
	}
	uvp := summary
	if len(bullets) > 0 {
		uvp = bullets[0]
	}

	evidenceStrength := 0.55 + math.Min(float64(len(evidence))*0.1, 0.35)
	insightDepth := 0.6 + math.Min(float64(len(insights))*0.05, 0.3)
	overall := round2((evidenceStrength + insightDepth) / 2)

	tags := []string{}
	if evidenceStrength < 0.6 {
		tags = append(tags, "needs_more_evidence")
	}
	if insightDepth >= 0.75 {
		tags = append(tags, "high_value_insights")
	}

	return &Payload{
		AnalysisID:       analysisID,
		RunStartedAt:     now,
		Summary:          summary,
		InsightSummaries: insights,
		EvidenceItems:    evidence,
		Report: Report{
			Title:       "Strategic Analysis – " + question,
			ReportType:  "recommendation",
			Content:     content,
			Model:       "crewai",
			GeneratedAt: now,
		},
		EntrepreneurBrief: EntrepreneurBrief{
			ProblemDescription:     summary,
			SolutionDescription:    in.StrategicQuestion,
			UniqueValueProposition: uvp,
			DifferentiationFactors: append([]string{}, top...),
			BusinessStage:          "validation",
			RecommendedNextSteps:   append([]string{}, top...),
			AIConfidenceScores:     map[string]float64{"analysis": 0.6},
			ValidationFlags:        []string{},
		},
		RawOutput: raw,
		Inputs:    in,
		UserID:    userID,
		QualitySignals: QualitySignals{
			AnalysisConfidence: overall,
			EvidenceStrength:   round2(evidenceStrength),
			InsightDepth:       round2(insightDepth),
			QualityTags:        tags,
		},
		StageMetrics: []StageMetric{
			{Stage: "Entrepreneur Brief", Coverage: 0.85, Quality: overall},
			{Stage: "Customer Insights", Coverage: 0.78, Quality: round2(math.Min(0.82, overall+0.04))},
			{Stage: "Validation Roadmap", Coverage: 0.72, Quality: round2(math.Min(0.8, overall+0.02))},
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
