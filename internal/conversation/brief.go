package conversation

import (
	"strings"
	"time"
)

var (
	positiveWords = []string{"excited", "great", "love", "amazing", "excellent", "fantastic"}
	concernWords  = []string{"worried", "concerned", "difficult", "challenge", "problem", "issue"}
)

type Sentiment string

const (
	SentimentPositive  Sentiment = "positive"
	SentimentConcerned Sentiment = "concerned"
	SentimentNeutral   Sentiment = "neutral"
)

type Insights struct {
	Keywords           []string  `json:"keywords"`
	Sentiment          Sentiment `json:"sentiment"`
	Completeness       float64   `json:"completeness"`
	NeedsClarification []string  `json:"needs_clarification"`
}

// ExtractInsights pulls topic keywords, a rough sentiment and a completeness
// estimate (word count over 20) out of a single answer.
func (e *Engine) ExtractInsights(message, topic string) Insights {
	lower := strings.ToLower(message)
	words := len(strings.Fields(message))

	in := Insights{
		Keywords:           []string{},
		Sentiment:          SentimentNeutral,
		Completeness:       min(float64(words)/20, 1),
		NeedsClarification: []string{},
	}

	for _, kw := range e.catalog.InsightTopics[topic] {
		if strings.Contains(lower, kw) {
			in.Keywords = append(in.Keywords, kw)
		}
	}

	if words < 10 {
		in.NeedsClarification = append(in.NeedsClarification, "Could you provide more detail?")
	}
	if strings.Contains(message, "?") {
		in.NeedsClarification = append(in.NeedsClarification, "Let me clarify that for you.")
	}

	positive, concerned := countMatches(lower, positiveWords), countMatches(lower, concernWords)
	switch {
	case positive > concerned:
		in.Sentiment = SentimentPositive
	case concerned > positive:
		in.Sentiment = SentimentConcerned
	}

	return in
}

func countMatches(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}

// TopicAnswer is what the onboarding flow captured for one brief topic.
type TopicAnswer struct {
	RawResponse string `json:"raw_response"`
}

type EntrepreneurBrief struct {
	ExecutiveSummary   string            `json:"executive_summary"`
	BusinessConcept    map[string]string `json:"business_concept"`
	MarketAnalysis     map[string]string `json:"market_analysis"`
	ValueProposition   map[string]string `json:"value_proposition"`
	BusinessModel      map[string]string `json:"business_model"`
	ValidationStrategy map[string]string `json:"validation_strategy"`
	KeyRisks           []string          `json:"key_risks"`
	NextSteps          []string          `json:"next_steps"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// BuildBrief assembles the entrepreneur brief from per-topic answers. Topics
// without an answer leave their section empty.
func (e *Engine) BuildBrief(answers map[string]TopicAnswer) *EntrepreneurBrief {
	section := func(topic string, build func(raw string) map[string]string) map[string]string {
		a, ok := answers[topic]
		if !ok {
			return map[string]string{}
		}
		return build(a.RawResponse)
	}

	return &EntrepreneurBrief{
		ExecutiveSummary: "This entrepreneur brief captures the key insights from the onboarding conversation. " +
			"The business concept addresses a clear market need with a differentiated solution. " +
			"Further analysis through CrewAI will provide detailed strategic recommendations.",
		BusinessConcept: section("business_idea", func(raw string) map[string]string {
			return map[string]string{"problem": raw, "solution": "AI-powered analysis pending", "inspiration": "Captured during onboarding"}
		}),
		MarketAnalysis: section("target_market", func(raw string) map[string]string {
			return map[string]string{"target_segments": raw, "pain_points": "Identified during conversation", "market_size": "To be validated"}
		}),
		ValueProposition: section("value_proposition", func(raw string) map[string]string {
			return map[string]string{"unique_value": raw, "key_differentiators": "Analyzed from responses", "customer_benefits": "Documented"}
		}),
		BusinessModel: section("business_model", func(raw string) map[string]string {
			return map[string]string{"revenue_streams": raw, "pricing_strategy": "Captured", "cost_structure": "Identified"}
		}),
		ValidationStrategy: section("validation_plan", func(raw string) map[string]string {
			return map[string]string{"approach": raw, "success_metrics": "Defined", "timeline": "To be determined"}
		}),
		KeyRisks: []string{
			"Market validation required",
			"Competitive landscape analysis needed",
			"Revenue model assumptions to be tested",
		},
		NextSteps: []string{
			"Complete CrewAI strategic analysis",
			"Develop MVP requirements",
			"Identify first 10 potential customers",
			"Create validation experiments",
		},
		GeneratedAt: e.clock.Now().UTC(),
	}
}
