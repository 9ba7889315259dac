package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vango-go/voicegate/pkg/agora"
	"github.com/vango-go/voicegate/pkg/core"
)

// AgentClient provisions and tears down remote conversational agents.
type AgentClient interface {
	StartAgent(ctx context.Context, channel, requesterID, systemPrompt string) (*agora.AgentInfo, error)
	QueryAgent(ctx context.Context, agentID string) (*agora.AgentInfo, error)
	StopAgent(ctx context.Context, agentID string) error
}

// TokenIssuer issues RTC join credentials.
type TokenIssuer interface {
	Issue(channel string, uid uint32, role agora.Role) (string, error)
}

// Manager drives the session lifecycle: provision an agent, credential the
// requester, record the session, and tear everything down on stop.
type Manager struct {
	store  Store
	agents AgentClient
	tokens TokenIssuer
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewManager creates a Manager backed by the given store and clients.
func NewManager(store Store, agents AgentClient, tokens TokenIssuer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		agents: agents,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
}

// StartResult is everything a requester needs to join their session.
type StartResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
	UID     uint32   `json:"uid"`
	AgentID string   `json:"agent_id"`
}

// Start provisions an agent on a fresh channel, issues the requester a
// publisher token, and records the session as active.
//
// If the agent starts but a later step fails, the agent is left running and
// will leave the channel on its own idle timeout; Start does not attempt to
// stop it.
func (m *Manager) Start(ctx context.Context, requesterID, systemPrompt string) (*StartResult, error) {
	if requesterID == "" {
		return nil, core.NewInvalidRequestErrorWithParam("requester_id is required", "requester_id")
	}

	channel := fmt.Sprintf("study_ai_%s_%d", requesterID, m.now().UnixMilli())

	agent, err := m.agents.StartAgent(ctx, channel, requesterID, systemPrompt)
	if err != nil {
		return nil, err
	}

	// uid 0 lets the RTC service assign one at join time.
	token, err := m.tokens.Issue(channel, 0, agora.RolePublisher)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:          m.newID(),
		RequesterID: requesterID,
		ChannelName: channel,
		AgentID:     agent.AgentID,
		Status:      StatusActive,
		StartedAt:   m.now(),
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("session started",
		"session_id", s.ID,
		"requester_id", requesterID,
		"channel", channel,
		"agent_id", agent.AgentID)

	return &StartResult{Session: s, Token: token, UID: 0, AgentID: agent.AgentID}, nil
}

// Stop ends a session. Stopping an already ended session is a no-op that
// returns the session as-is. The remote agent stop is best effort: a vendor
// failure is logged and the session is still marked ended, since the agent
// will leave on its idle timeout regardless.
func (m *Manager) Stop(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, core.NewNotFoundError(fmt.Sprintf("session %s not found", sessionID))
	}
	if s.Status == StatusEnded {
		return s, nil
	}

	if err := m.agents.StopAgent(ctx, s.AgentID); err != nil {
		m.logger.Warn("failed to stop agent, relying on idle timeout",
			"session_id", s.ID,
			"agent_id", s.AgentID,
			"error", err)
	}

	endedAt := m.now()
	s.Status = StatusEnded
	s.EndedAt = &endedAt
	if err := m.store.Update(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("session stopped", "session_id", s.ID, "agent_id", s.AgentID)
	return s, nil
}

// Get returns a session by id.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, core.NewNotFoundError(fmt.Sprintf("session %s not found", sessionID))
	}
	return s, nil
}

// ListActive returns all sessions currently marked active.
func (m *Manager) ListActive(ctx context.Context) ([]*Session, error) {
	return m.store.ListActive(ctx)
}

// AgentStatus queries the vendor for an agent's live state. The vendor
// response passes through untouched.
func (m *Manager) AgentStatus(ctx context.Context, agentID string) (*agora.AgentInfo, error) {
	if agentID == "" {
		return nil, core.NewInvalidRequestErrorWithParam("agent id is required", "agent_id")
	}
	return m.agents.QueryAgent(ctx, agentID)
}
