package conversation

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	return NewEngine(catalog, clockwork.NewFakeClockAt(fixedNow))
}

func history(n int) []map[string]any {
	h := make([]map[string]any, n)
	for i := range h {
		h[i] = map[string]any{"role": "user", "content": "earlier answer"}
	}
	return h
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)

	require.Equal(t, 7, catalog.TotalStages())
	thresholds := make([]int, 0, 7)
	for _, s := range catalog.Stages {
		thresholds = append(thresholds, s.ProgressThreshold)
		assert.Len(t, s.KeyQuestions, 3, s.Name)
	}
	assert.Equal(t, []int{80, 75, 80, 75, 70, 75, 85}, thresholds)
	assert.Equal(t, "Goals & Next Steps", catalog.Stage(7).Name)
	assert.Equal(t, "Welcome & Introduction", catalog.Stage(0).Name)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "stages: [::"},
		{"no stages", "default_persona: trial\npersonas:\n  trial: {name: Alex}\n"},
		{"out of order", "stages:\n  - {id: 2, name: X, progress_threshold: 50}\ndefault_persona: trial\npersonas:\n  trial: {name: Alex}\n"},
		{"unknown default persona", "stages:\n  - {id: 1, name: X, progress_threshold: 50}\ndefault_persona: gold\npersonas:\n  trial: {name: Alex}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestStartSession(t *testing.T) {
	e := newTestEngine(t)

	start := e.StartSession("sprint", nil)

	assert.True(t, strings.HasPrefix(start.Introduction, "Hi! I'm Jordan, your Business Strategist."))
	assert.Equal(t, "Jordan", start.Context.AgentPersonality.Name)
	assert.Len(t, start.Context.ExpectedOutcomes, 6)
	assert.NotEmpty(t, start.Context.PrivacyNotice)
	assert.Equal(t, SessionStageState{
		CurrentStage: 1,
		StageName:    "Welcome & Introduction",
		TotalStages:  7,
		Summary:      "Getting to know you and your business idea",
	}, start.StageState)
	assert.Equal(t, 0.46, start.QualitySignals.Overall)
	assert.Equal(t, []string{"needs_detail"}, start.QualitySignals.QualityTags)
	assert.Equal(t, "Additional detail captured", start.StageSnapshot.Notes)
	assert.Equal(t, fixedNow, start.StageSnapshot.UpdatedAt)
	assert.Equal(t, "20-25 minutes", start.EstimatedDuration)
	assert.NotNil(t, start.UserContext)
}

func TestStartSession_UnknownPlanUsesTrialPersona(t *testing.T) {
	e := newTestEngine(t)

	start := e.StartSession("platinum", map[string]any{"industry": "fintech"})

	assert.Equal(t, "Alex", start.Context.AgentPersonality.Name)
	assert.Equal(t, "fintech", start.UserContext["industry"])
}

func TestProcessMessage_ShortFirstAnswer(t *testing.T) {
	e := newTestEngine(t)

	res := e.ProcessMessage(MessageRequest{SessionID: "s-1", Message: "  An app idea  ", CurrentStage: 1})

	assert.Equal(t, "s-1", res.SessionID)
	assert.True(t, strings.HasPrefix(res.AgentResponse, "A software solution"))
	assert.Equal(t, map[string]any{"business_stage": "idea", "solution_type": "software"}, res.BriefUpdate)
	assert.Contains(t, res.FollowUpQuestion, "what inspired this idea")

	assert.Equal(t, 10, res.StageState.StageProgress)
	assert.InDelta(t, 1.4, res.StageState.OverallProgress, 1e-9)
	assert.False(t, res.StageState.IsStageComplete)
	assert.Equal(t, 1, res.StageState.CurrentStage)

	assert.Equal(t, "low", res.QualitySignals.Clarity.Label)
	assert.Equal(t, 0.38, res.QualitySignals.Clarity.Score)
	assert.Equal(t, "insufficient", res.QualitySignals.Completeness.Label)
	assert.Equal(t, 0.1, res.QualitySignals.DetailScore)
	assert.Equal(t, 0.28, res.QualitySignals.Overall)
	assert.Equal(t, []string{"clarity_low", "incomplete"}, res.QualitySignals.QualityTags)
	assert.Len(t, res.QualitySignals.Suggestions, 2)

	assert.Equal(t, SystemActions{RequestClarification: true, NeedsReview: true}, res.SystemActions)
	assert.Equal(t, []string{"business_stage", "solution_type"}, res.StageSnapshot.BriefFields)
	assert.Equal(t, "An app idea", res.StageSnapshot.LastMessageExcerpt)
}

func TestProcessMessage_DetailCountsCharactersNotBytes(t *testing.T) {
	e := newTestEngine(t)

	// 30 characters, 60 bytes.
	short := e.ProcessMessage(MessageRequest{SessionID: "s-1", Message: strings.Repeat("é", 30), CurrentStage: 1})
	assert.Equal(t, "low", short.QualitySignals.Clarity.Label)
	assert.Equal(t, 10, short.StageState.StageProgress)

	long := e.ProcessMessage(MessageRequest{SessionID: "s-1", Message: strings.Repeat("é", 51), CurrentStage: 1})
	assert.Equal(t, "medium", long.QualitySignals.Clarity.Label)
}

func TestProcessMessage_StageAdvances(t *testing.T) {
	e := newTestEngine(t)

	res := e.ProcessMessage(MessageRequest{
		Message:      "Mainly spreadsheets and consultants, there is no one else building this specifically for clinics.",
		CurrentStage: 5,
		History:      history(3),
	})

	assert.True(t, res.StageState.IsStageComplete)
	assert.Equal(t, 5, res.StageState.PreviousStage)
	assert.Equal(t, 6, res.StageState.CurrentStage)
	assert.Equal(t, "Competitive Analysis", res.StageState.StageName)
	assert.Equal(t, "Resources & Constraints", res.StageState.NextStageName)
	assert.Equal(t, 0, res.StageState.StageProgress)
	assert.Equal(t, 0, res.ConversationMetrics.StageProgress)
	assert.InDelta(t, 67.2, res.StageState.OverallProgress, 1e-9)
	assert.Empty(t, res.FollowUpQuestion)
	assert.Contains(t, res.AgentResponse, "customers are always solving this problem somehow")

	assert.Equal(t, "high", res.QualitySignals.Clarity.Label)
	assert.Equal(t, "complete", res.QualitySignals.Completeness.Label)
	assert.Empty(t, res.QualitySignals.QualityTags)
	assert.Equal(t, "Stage advanced", res.StageSnapshot.Notes)
	assert.Equal(t, SystemActions{SaveCheckpoint: true}, res.SystemActions)
}

func TestProcessMessage_FinalStageTriggersWorkflow(t *testing.T) {
	e := newTestEngine(t)

	res := e.ProcessMessage(MessageRequest{
		Message:      "Sign ten paying pilot customers and reach a 40 percent weekly retention rate by June.",
		CurrentStage: 7,
		History:      history(5),
	})

	assert.True(t, res.StageState.IsStageComplete)
	assert.Equal(t, 7, res.StageState.CurrentStage)
	assert.Equal(t, 95, res.StageState.StageProgress)
	assert.Equal(t, 95, res.ConversationMetrics.StageProgress)
	assert.True(t, res.SystemActions.TriggerWorkflow)
	assert.Contains(t, res.FollowUpQuestion, "Before I generate your personalized strategic report")
	assert.Contains(t, res.AgentResponse, "We've covered all the key areas")
	assert.Equal(t, []string{"Sign ten paying pilot customers and reach a 40 percent weekly retention rate by June."}, res.BriefUpdate["three_month_goals"])
}

func TestProcessMessage_UnknownStageFallsBackToFirst(t *testing.T) {
	e := newTestEngine(t)

	res := e.ProcessMessage(MessageRequest{Message: "consulting for farms", CurrentStage: 42})

	assert.Equal(t, 1, res.StageState.PreviousStage)
	assert.Equal(t, "service", res.BriefUpdate["solution_type"])
}

func TestProcessMessage_ProgressCapped(t *testing.T) {
	e := newTestEngine(t)

	res := e.ProcessMessage(MessageRequest{Message: "ok", CurrentStage: 7, History: history(10)})

	assert.Equal(t, 100, res.ConversationMetrics.StageProgress)
	assert.InDelta(t, 98.0, res.ConversationMetrics.OverallProgress, 1e-9)
}

func TestProcessMessage_StageSpecificBriefUpdates(t *testing.T) {
	tests := []struct {
		name    string
		stage   int
		message string
		key     string
		want    any
	}{
		{"b2b customers", 2, "Small business owners", "customer_type", "b2b"},
		{"b2c customers", 2, "Busy people in cities", "customer_type", "b2c"},
		{"pain language", 3, "Reconciling invoices is frustrating", "problem_pain_level", 8},
		{"neutral problem", 3, "Invoices arrive late", "problem_pain_level", 6},
		{"budget amount", 6, "We have $25,000 saved", "budget_range", "$25,000"},
		{"budget mentioned", 6, "Our budget is tight", "budget_range", "specified"},
		{"solution text", 4, "A unique scheduling bot", "solution_description", "A unique scheduling bot"},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.ProcessMessage(MessageRequest{Message: tt.message, CurrentStage: tt.stage})
			assert.Equal(t, tt.want, res.BriefUpdate[tt.key])
		})
	}
}

func TestProcessMessage_NoBudgetLeavesBriefEmpty(t *testing.T) {
	e := newTestEngine(t)

	res := e.ProcessMessage(MessageRequest{Message: "Two engineers and a designer", CurrentStage: 6})

	assert.Empty(t, res.BriefUpdate)
	assert.Equal(t, "Understanding your resources helps us create a realistic roadmap. ", res.AgentResponse)
}

func TestProcessMessage_ExcerptTruncated(t *testing.T) {
	e := newTestEngine(t)

	res := e.ProcessMessage(MessageRequest{Message: strings.Repeat("ü", 300), CurrentStage: 3})

	assert.Equal(t, 240, len([]rune(res.StageSnapshot.LastMessageExcerpt)))
	assert.Equal(t, 300, len([]rune(res.BriefUpdate["problem_description"].(string))))
}
