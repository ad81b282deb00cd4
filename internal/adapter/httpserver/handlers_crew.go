package httpserver

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/conversation"
	"github.com/pscheid92/startupai/internal/domain"
	apperrors "github.com/pscheid92/startupai/internal/platform/errors"
)

const (
	actionAnalysis            = "analysis"
	actionConversationStart   = "conversation_start"
	actionConversationMessage = "conversation_message"

	defaultPlan = "trial"
)

func (s *Server) registerCrewRoutes(api *echo.Group) {
	api.GET("/crew-analyze", s.handleCrewHealth)
	api.POST("/crew-analyze", s.handleCrewAnalyze)
	api.POST("/crew-analyze/background", s.handleCrewBackground, s.requireAuth)
	api.GET("/crew-analyze/diagnostics", s.handleCrewDiagnostics)
	api.GET("/analyses/:id", s.handleGetAnalysis, s.requireAuth)
}

func (s *Server) handleCrewHealth(c echo.Context) error {
	crew := s.app.CrewAvailable()
	return writeJSON(c, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "crew-analyze",
		"timestamp": s.clock.Now().UTC(),
		"capabilities": map[string]bool{
			actionConversationStart:   true,
			actionConversationMessage: true,
			actionAnalysis:            crew,
		},
		"environment": map[string]any{
			"go_version":                runtime.Version(),
			"has_supabase_config":       s.config.SupabaseURL != "" || s.config.SupabaseJWTSecret != "",
			"startup_ai_crew_available": crew,
		},
	})
}

type crewEnvelope struct {
	Action string `json:"action"`
}

type conversationStartRequest struct {
	PlanType    string         `json:"plan_type"`
	UserContext map[string]any `json:"user_context"`
}

type conversationMessageRequest struct {
	SessionID           string           `json:"session_id"`
	Message             string           `json:"message"`
	CurrentStage        any              `json:"current_stage"`
	ConversationHistory []map[string]any `json:"conversation_history"`
	StageData           map[string]any   `json:"stage_data"`
}

// handleCrewAnalyze validates the body and action before authenticating, so
// malformed requests are rejected without an auth round trip.
func (s *Server) handleCrewAnalyze(c echo.Context) error {
	start := s.clock.Now()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperrors.ValidationError("Request body is required")
	}

	var env crewEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}
	if env.Action == "" {
		env.Action = actionAnalysis
	}
	switch env.Action {
	case actionAnalysis, actionConversationStart, actionConversationMessage:
	default:
		return apperrors.ValidationError("Unsupported action '" + env.Action + "'").WithField("action", env.Action)
	}

	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}

	switch env.Action {
	case actionConversationStart:
		return s.conversationStart(c, userID, body)
	case actionConversationMessage:
		return s.conversationMessage(c, userID, body)
	default:
		return s.runAnalysis(c, userID, body, start)
	}
}

func (s *Server) conversationStart(c echo.Context, userID uuid.UUID, body []byte) error {
	ctx := c.Request().Context()

	if _, err := s.consume(ctx, c, userID, domain.ConversationStartRateLimit, "Too many session starts. Please try again soon."); err != nil {
		return err
	}

	var req conversationStartRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}
	plan := strings.ToLower(strings.TrimSpace(req.PlanType))
	if plan == "" {
		plan = defaultPlan
	}

	seed := s.app.StartConversation(ctx, userID, plan, req.UserContext)
	return writeJSON(c, http.StatusOK, map[string]any{
		"success": true,
		"kind":    actionConversationStart,
		"session": map[string]any{
			"agent_introduction": seed.Introduction,
			"first_question":     seed.FirstQuestion,
			"context":            seed.Context,
			"stage_state":        seed.StageState,
			"stage_snapshot":     seed.StageSnapshot,
			"quality_signals":    seed.QualitySignals,
			"estimated_duration": seed.EstimatedDuration,
			"user_context":       seed.UserContext,
		},
	})
}

func (s *Server) conversationMessage(c echo.Context, userID uuid.UUID, body []byte) error {
	ctx := c.Request().Context()

	if _, err := s.consume(ctx, c, userID, domain.ConversationMessageRateLimit,
		"Conversation rate limit reached. Pause briefly before sending another message."); err != nil {
		return err
	}

	var req conversationMessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}

	stage, stageOK := stageNumber(req.CurrentStage)
	var missing []string
	if req.SessionID == "" {
		missing = append(missing, "session_id")
	}
	if req.Message == "" {
		missing = append(missing, "message")
	}
	if !stageOK {
		missing = append(missing, "current_stage")
	}
	if len(missing) > 0 {
		return apperrors.ValidationError("Missing required fields: " + strings.Join(missing, ", "))
	}

	res := s.app.ProcessConversationMessage(ctx, userID, conversation.MessageRequest{
		SessionID:    req.SessionID,
		Message:      req.Message,
		CurrentStage: stage,
		History:      req.ConversationHistory,
		StageData:    req.StageData,
	})

	h := c.Response().Header()
	h.Set(headerConversationStage, strconv.Itoa(res.StageState.CurrentStage))
	h.Set(headerConversationProgress, strconv.FormatFloat(res.ConversationMetrics.OverallProgress, 'f', -1, 64))

	return writeJSON(c, http.StatusOK, map[string]any{
		"success": true,
		"kind":    actionConversationMessage,
		"message": map[string]any{
			"agent_response":       res.AgentResponse,
			"follow_up_question":   res.FollowUpQuestion,
			"quality_signals":      res.QualitySignals,
			"brief_update":         res.BriefUpdate,
			"stage_state":          res.StageState,
			"stage_snapshot":       res.StageSnapshot,
			"system_actions":       res.SystemActions,
			"conversation_metrics": res.ConversationMetrics,
		},
	})
}

// stageNumber accepts a positive stage as a JSON number or numeric string.
func stageNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n >= 1 && n == math.Trunc(n) {
			return int(n), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && i >= 1 {
			return i, true
		}
	}
	return 0, false
}

func (s *Server) runAnalysis(c echo.Context, userID uuid.UUID, body []byte, start time.Time) error {
	ctx := c.Request().Context()
	limit := domain.AnalysisRateLimit

	decision, err := s.consume(ctx, c, userID, limit, "Rate limit exceeded. Please wait before running another analysis.")
	if err != nil {
		return err
	}

	var in analysis.Inputs
	if err := json.Unmarshal(body, &in); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}

	res, err := s.app.RunAnalysis(ctx, userID, in)
	if err != nil {
		return domainError(err, "failed to run analysis")
	}

	elapsed := s.clock.Since(start).Seconds()
	h := c.Response().Header()
	h.Set(headerAnalysisMode, res.Metadata.Mode)
	h.Set(headerExecutionTime, strconv.FormatFloat(elapsed, 'f', 3, 64))

	return writeJSON(c, http.StatusOK, map[string]any{
		"success":     true,
		"analysis_id": res.AnalysisID,
		"result":      res.Payload,
		"metadata": map[string]any{
			"project_id":             res.Payload.Inputs.ProjectID,
			"question":               res.Payload.Inputs.StrategicQuestion,
			"user_id":                userID.String(),
			"engine":                 res.Metadata,
			"execution_time_seconds": math.Round(elapsed*100) / 100,
			"rate_limit": map[string]int{
				"limit":          decision.Limit,
				"remaining":      decision.Remaining,
				"window_seconds": int(limit.Window.Seconds()),
			},
		},
	})
}

func (s *Server) handleCrewBackground(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var in analysis.Inputs
	if err := c.Bind(&in); err != nil {
		return apperrors.ValidationError("Invalid JSON in request body")
	}

	if _, err := s.consume(ctx, c, userID, domain.AnalysisRateLimit, "Rate limit exceeded. Please wait before running another analysis."); err != nil {
		return err
	}

	run, err := s.app.SubmitAnalysis(ctx, userID, in)
	if err != nil {
		return domainError(err, "failed to queue analysis")
	}

	return writeJSON(c, http.StatusAccepted, map[string]any{
		"success":     true,
		"analysis_id": run.ID,
		"status":      run.Status,
		"status_url":  "/api/analyses/" + run.ID,
	})
}

func (s *Server) handleCrewDiagnostics(c echo.Context) error {
	return writeJSON(c, http.StatusOK, s.app.Diagnostics(c.Request().Context()))
}

type analysisRunResponse struct {
	AnalysisID  string                `json:"analysis_id"`
	ProjectID   string                `json:"project_id"`
	Status      domain.AnalysisStatus `json:"status"`
	Mode        string                `json:"mode,omitempty"`
	Inputs      map[string]any        `json:"inputs"`
	Result      map[string]any        `json:"result,omitempty"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	Error       string                `json:"error,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

func (s *Server) handleGetAnalysis(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	run, err := s.app.GetAnalysis(c.Request().Context(), userID, id)
	if err != nil {
		return domainError(err, "failed to load analysis").WithField("analysis_id", id)
	}

	return writeJSON(c, http.StatusOK, analysisRunResponse{
		AnalysisID:  run.ID,
		ProjectID:   run.ProjectID,
		Status:      run.Status,
		Mode:        run.Mode,
		Inputs:      run.Inputs,
		Result:      run.Result,
		Metadata:    run.Metadata,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
		CompletedAt: run.CompletedAt,
	})
}
