package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractInsights(t *testing.T) {
	e := newTestEngine(t)

	in := e.ExtractInsights("We automate invoices to solve a painful problem for small shops and I am excited about it", "business_idea")

	assert.Equal(t, []string{"solve", "problem", "automate"}, in.Keywords)
	assert.Equal(t, SentimentNeutral, in.Sentiment)
	assert.InDelta(t, 0.85, in.Completeness, 1e-9)
	assert.Empty(t, in.NeedsClarification)
}

func TestExtractInsights_ShortQuestion(t *testing.T) {
	e := newTestEngine(t)

	in := e.ExtractInsights("Is this market big?", "target_market")

	assert.Equal(t, []string{"market"}, in.Keywords)
	assert.InDelta(t, 0.2, in.Completeness, 1e-9)
	assert.Equal(t, []string{"Could you provide more detail?", "Let me clarify that for you."}, in.NeedsClarification)
}

func TestExtractInsights_Sentiment(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, SentimentPositive, e.ExtractInsights("I love this and the team is excited", "").Sentiment)
	assert.Equal(t, SentimentConcerned, e.ExtractInsights("I am worried about the challenge", "").Sentiment)
}

func TestExtractInsights_UnknownTopic(t *testing.T) {
	e := newTestEngine(t)

	in := e.ExtractInsights("solve everything", "pricing")
	assert.Empty(t, in.Keywords)
	assert.NotNil(t, in.Keywords)
}

func TestBuildBrief(t *testing.T) {
	e := newTestEngine(t)

	brief := e.BuildBrief(map[string]TopicAnswer{
		"business_idea": {RawResponse: "Invoice automation for clinics"},
		"target_market": {RawResponse: "Independent dental practices"},
	})

	assert.Equal(t, "Invoice automation for clinics", brief.BusinessConcept["problem"])
	assert.Equal(t, "Independent dental practices", brief.MarketAnalysis["target_segments"])
	assert.Empty(t, brief.ValueProposition)
	assert.Empty(t, brief.BusinessModel)
	assert.Empty(t, brief.ValidationStrategy)
	assert.Len(t, brief.KeyRisks, 3)
	assert.Len(t, brief.NextSteps, 4)
	assert.Equal(t, fixedNow, brief.GeneratedAt)
	assert.NotEmpty(t, brief.ExecutiveSummary)
}
