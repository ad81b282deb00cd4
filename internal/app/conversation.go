package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pscheid92/startupai/internal/conversation"
)

func (s *Service) StartConversation(ctx context.Context, userID uuid.UUID, plan string, userContext map[string]any) *conversation.SessionStart {
	start := s.conversation.StartSession(plan, userContext)
	slog.InfoContext(ctx, "Conversation started", "user_id", userID.String(), "persona", start.Context.AgentPersonality.Name)
	return start
}

func (s *Service) ProcessConversationMessage(ctx context.Context, userID uuid.UUID, req conversation.MessageRequest) *conversation.MessageResult {
	res := s.conversation.ProcessMessage(req)
	slog.DebugContext(ctx, "Conversation message processed",
		"user_id", userID.String(),
		"session_id", req.SessionID,
		"stage", res.StageState.CurrentStage,
		"stage_progress", res.StageState.StageProgress)
	return res
}

func (s *Service) BuildBrief(answers map[string]conversation.TopicAnswer) *conversation.EntrepreneurBrief {
	return s.conversation.BuildBrief(answers)
}
