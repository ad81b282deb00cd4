package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversationService(t *testing.T) *Service {
	t.Helper()
	catalog, err := conversation.LoadCatalog()
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	return NewService(Deps{Conversation: conversation.NewEngine(catalog, clock), Clock: clock})
}

func TestStartConversation_UnknownPlanUsesDefaultPersona(t *testing.T) {
	svc := conversationService(t)

	start := svc.StartConversation(context.Background(), uuid.New(), "no-such-plan", nil)

	assert.Equal(t, "Alex", start.Context.AgentPersonality.Name)
	assert.Equal(t, 1, start.StageState.CurrentStage)
	assert.NotNil(t, start.UserContext)
}

func TestProcessConversationMessage_CarriesSession(t *testing.T) {
	svc := conversationService(t)

	res := svc.ProcessConversationMessage(context.Background(), uuid.New(), conversation.MessageRequest{
		SessionID:    "sess-1",
		Message:      "hi",
		CurrentStage: 1,
	})

	assert.Equal(t, "sess-1", res.SessionID)
	assert.Equal(t, 1, res.StageState.CurrentStage)
	assert.True(t, res.SystemActions.RequestClarification)
}
