package conversation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
)

var (
	specificityPattern = regexp.MustCompile(`(?i)\b(specifically|exactly|particularly|mainly|primarily)\b`)
	budgetPattern      = regexp.MustCompile(`\$[\d,]+`)
)

const (
	detailedMessageLength = 50
	excerptLength         = 240
	estimatedDuration     = "20-25 minutes"

	privacyNotice = "Your conversation is private and secure. All information shared will be used solely to provide personalized " +
		"strategic guidance and will not be shared with third parties."
	startEncouragement   = "Let's explore your vision together and capture the details that matter."
	messageEncouragement = "You're making great progress! Your insights are helping build a comprehensive picture of your business opportunity."
)

// Engine runs the onboarding conversation heuristics. It holds no per-session
// state; callers pass the current stage and history with every message.
type Engine struct {
	catalog *Catalog
	clock   clockwork.Clock
}

func NewEngine(catalog *Catalog, clock clockwork.Clock) *Engine {
	return &Engine{catalog: catalog, clock: clock}
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

type SessionContext struct {
	AgentPersonality Persona  `json:"agentPersonality"`
	ExpectedOutcomes []string `json:"expectedOutcomes"`
	PrivacyNotice    string   `json:"privacyNotice"`
}

type SessionStageState struct {
	CurrentStage    int     `json:"current_stage"`
	StageName       string  `json:"stage_name"`
	TotalStages     int     `json:"total_stages"`
	StageProgress   int     `json:"stage_progress"`
	OverallProgress float64 `json:"overall_progress"`
	Summary         string  `json:"summary"`
}

type SnapshotQuality struct {
	Clarity      ScoredLabel `json:"clarity"`
	Completeness ScoredLabel `json:"completeness"`
	DetailScore  float64     `json:"detail_score"`
}

type StageSnapshot struct {
	Stage              int             `json:"stage"`
	Coverage           float64         `json:"coverage"`
	Quality            SnapshotQuality `json:"quality"`
	BriefFields        []string        `json:"brief_fields"`
	LastMessageExcerpt string          `json:"last_message_excerpt"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Notes              string          `json:"notes"`
}

type SessionStart struct {
	Introduction      string            `json:"introduction"`
	FirstQuestion     string            `json:"first_question"`
	Context           SessionContext    `json:"context"`
	StageState        SessionStageState `json:"stage_state"`
	StageSnapshot     StageSnapshot     `json:"stage_snapshot"`
	QualitySignals    QualitySignals    `json:"quality_signals"`
	EstimatedDuration string            `json:"estimated_duration"`
	UserContext       map[string]any    `json:"user_context"`
}

func (e *Engine) StartSession(plan string, userContext map[string]any) *SessionStart {
	persona := e.catalog.Persona(plan)
	first := e.catalog.Stage(1)
	if userContext == nil {
		userContext = map[string]any{}
	}

	quality := newQualitySignals(ClarityMedium, Partial, 0.05)
	quality.Encouragement = startEncouragement
	quality.QualityTags = []string{"needs_detail"}

	return &SessionStart{
		Introduction: fmt.Sprintf("Hi! I'm %s, your %s. ", persona.Name, persona.Role) +
			"I'm here to help you develop a comprehensive strategic analysis of your business idea. " +
			"I'll guide you through a structured conversation to understand your vision, validate your assumptions, " +
			"and create actionable insights.",
		FirstQuestion: "Let's start with the big picture. What's the business idea or opportunity you're most excited about right now? " +
			"Don't worry about having all the details figured out - I'm here to help you think through everything systematically.",
		Context: SessionContext{
			AgentPersonality: persona,
			ExpectedOutcomes: append([]string(nil), e.catalog.ExpectedOutcomes...),
			PrivacyNotice:    privacyNotice,
		},
		StageState: SessionStageState{
			CurrentStage: 1,
			StageName:    first.Name,
			TotalStages:  e.catalog.TotalStages(),
			Summary:      first.Description,
		},
		StageSnapshot:     e.snapshot(1, 0, ClarityMedium, Partial, 0.05, nil, ""),
		QualitySignals:    quality,
		EstimatedDuration: estimatedDuration,
		UserContext:       userContext,
	}
}

type MessageRequest struct {
	SessionID    string
	Message      string
	CurrentStage int
	History      []map[string]any
	StageData    map[string]any
}

type StageTransition struct {
	PreviousStage   int     `json:"previous_stage"`
	CurrentStage    int     `json:"current_stage"`
	StageName       string  `json:"stage_name"`
	NextStageName   string  `json:"next_stage_name"`
	StageProgress   int     `json:"stage_progress"`
	OverallProgress float64 `json:"overall_progress"`
	IsStageComplete bool    `json:"is_stage_complete"`
	TotalStages     int     `json:"total_stages"`
}

type SystemActions struct {
	TriggerWorkflow      bool `json:"trigger_workflow"`
	SaveCheckpoint       bool `json:"save_checkpoint"`
	RequestClarification bool `json:"request_clarification"`
	NeedsReview          bool `json:"needs_review"`
}

type Metrics struct {
	StageProgress     int     `json:"stage_progress"`
	OverallProgress   float64 `json:"overall_progress"`
	ClarityLabel      string  `json:"clarity_label"`
	CompletenessLabel string  `json:"completeness_label"`
}

type MessageResult struct {
	SessionID           string          `json:"session_id,omitempty"`
	AgentResponse       string          `json:"agent_response"`
	FollowUpQuestion    string          `json:"follow_up_question"`
	BriefUpdate         map[string]any  `json:"brief_update"`
	QualitySignals      QualitySignals  `json:"quality_signals"`
	StageState          StageTransition `json:"stage_state"`
	StageSnapshot       StageSnapshot   `json:"stage_snapshot"`
	SystemActions       SystemActions   `json:"system_actions"`
	ConversationMetrics Metrics         `json:"conversation_metrics"`
}

// ProcessMessage scores one user message, decides whether the stage is
// complete and produces the agent's reply. Unknown stages are treated as stage 1.
func (e *Engine) ProcessMessage(req MessageRequest) *MessageResult {
	stageID := req.CurrentStage
	if stageID < 1 || stageID > e.catalog.TotalStages() {
		stageID = 1
	}
	stage := e.catalog.Stage(stageID)

	message := strings.TrimSpace(req.Message)
	lower := strings.ToLower(message)
	hasDetails := utf8.RuneCountInString(message) > detailedMessageLength
	hasSpecifics := specificityPattern.MatchString(message)

	progress := stageProgress(len(req.History), hasDetails, hasSpecifics)
	overall := overallProgress(stageID, progress)
	complete := progress >= stage.ProgressThreshold

	nextStage := stageID
	if complete && stageID < e.catalog.TotalStages() {
		nextStage = stageID + 1
	}
	advanced := nextStage > stageID

	reply := respond(stageID, message, lower, complete)

	clarityLabel := ClarityLow
	switch {
	case hasDetails && hasSpecifics:
		clarityLabel = ClarityHigh
	case hasDetails:
		clarityLabel = ClarityMedium
	}

	completenessLabel := Insufficient
	switch {
	case complete:
		completenessLabel = Complete
	case progress > 50:
		completenessLabel = Partial
	}

	var suggestions []string
	if !hasDetails {
		suggestions = append(suggestions, "Try to provide more specific details to help me understand your situation better.")
	}
	if progress < 50 {
		suggestions = append(suggestions, "Consider sharing examples or specific scenarios to illustrate your points.")
	}

	detail := round2(float64(progress) / 100)
	quality := newQualitySignals(clarityLabel, completenessLabel, detail)
	quality.Suggestions = suggestions
	quality.Encouragement = messageEncouragement
	if clarityLabel == ClarityLow {
		quality.QualityTags = append(quality.QualityTags, "clarity_low")
	}
	if completenessLabel == Insufficient {
		quality.QualityTags = append(quality.QualityTags, "incomplete")
	}

	transition := StageTransition{
		PreviousStage:   stageID,
		CurrentStage:    nextStage,
		StageName:       stage.Name,
		NextStageName:   e.catalog.Stage(nextStage).Name,
		StageProgress:   progress,
		OverallProgress: overall,
		IsStageComplete: complete,
		TotalStages:     e.catalog.TotalStages(),
	}
	metrics := Metrics{
		StageProgress:     progress,
		OverallProgress:   overall,
		ClarityLabel:      string(clarityLabel),
		CompletenessLabel: string(completenessLabel),
	}
	followUp := reply.followUp
	if advanced {
		transition.StageProgress = 0
		metrics.StageProgress = 0
		followUp = ""
	}

	return &MessageResult{
		SessionID:        req.SessionID,
		AgentResponse:    reply.response,
		FollowUpQuestion: followUp,
		BriefUpdate:      reply.brief,
		QualitySignals:   quality,
		StageState:       transition,
		StageSnapshot:    e.snapshot(stageID, detail, clarityLabel, completenessLabel, detail, reply.brief, message),
		SystemActions: SystemActions{
			TriggerWorkflow:      stageID == e.catalog.TotalStages() && complete,
			SaveCheckpoint:       complete,
			RequestClarification: progress < 30 || clarityLabel == ClarityLow,
			NeedsReview:          clarityLabel == ClarityLow || completenessLabel == Insufficient,
		},
		ConversationMetrics: metrics,
	}
}

// stageProgress: 15 points per prior exchange, 20 for a detailed message (10
// otherwise), 15 for specificity language, capped at 100.
func stageProgress(historyLen int, hasDetails, hasSpecifics bool) int {
	progress := historyLen * 15
	if hasDetails {
		progress += 20
	} else {
		progress += 10
	}
	if hasSpecifics {
		progress += 15
	}
	return min(progress, 100)
}

// overallProgress gives each completed stage 14 points plus a proportional
// share of the current one.
func overallProgress(stageID, progress int) float64 {
	return min(100, float64((stageID-1)*14)+float64(progress)*0.14)
}

func (e *Engine) snapshot(stageID int, coverage float64, c ClarityLabel, comp CompletenessLabel, detail float64, brief map[string]any, message string) StageSnapshot {
	fields := make([]string, 0, len(brief))
	for k := range brief {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	notes := "Additional detail captured"
	if comp == Complete {
		notes = "Stage advanced"
	}

	return StageSnapshot{
		Stage:    stageID,
		Coverage: clamp(coverage, 0, 1),
		Quality: SnapshotQuality{
			Clarity:      clarity(c),
			Completeness: completeness(comp),
			DetailScore:  detail,
		},
		BriefFields:        fields,
		LastMessageExcerpt: truncate(message, excerptLength),
		UpdatedAt:          e.clock.Now().UTC(),
		Notes:              notes,
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
