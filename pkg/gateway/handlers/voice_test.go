package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/voicegate/pkg/agora"
	"github.com/vango-go/voicegate/pkg/core"
	"github.com/vango-go/voicegate/pkg/gateway/auth"
	"github.com/vango-go/voicegate/pkg/gateway/config"
	"github.com/vango-go/voicegate/pkg/session"
)

type stubAgentClient struct {
	startErr error
	stopErr  error
	stops    int
}

func (s *stubAgentClient) StartAgent(_ context.Context, channel, requesterID, systemPrompt string) (*agora.AgentInfo, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &agora.AgentInfo{AgentID: "agent-777", Status: "RUNNING"}, nil
}

func (s *stubAgentClient) QueryAgent(_ context.Context, agentID string) (*agora.AgentInfo, error) {
	return &agora.AgentInfo{AgentID: agentID, Status: "RUNNING"}, nil
}

func (s *stubAgentClient) StopAgent(_ context.Context, agentID string) error {
	s.stops++
	return s.stopErr
}

func newVoiceEnv(t *testing.T, agents *stubAgentClient) (SessionManager, config.Config) {
	t.Helper()
	tokens := &agora.TokenIssuer{
		AppID:          "app123",
		AppCertificate: "cert456",
		TTL:            time.Hour,
	}
	mgr := session.NewManager(session.NewMemoryStore(), agents, tokens, slog.New(slog.DiscardHandler))
	cfg := config.Config{MaxBodyBytes: 1 << 20, AgoraAppID: "app123"}
	return mgr, cfg
}

func TestVoiceStartStopRoundTrip(t *testing.T) {
	agents := &stubAgentClient{}
	mgr, cfg := newVoiceEnv(t, agents)

	// Start.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/start",
		strings.NewReader(`{"requester_id":"user42","system_prompt":"Be nice."}`))
	StartVoiceHandler{Config: cfg, Sessions: mgr}.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var started startResponse
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("start: decode: %v", err)
	}
	if !strings.Contains(started.ChannelName, "user42") {
		t.Errorf("channel should embed requester id, got %q", started.ChannelName)
	}
	if !strings.HasPrefix(started.Token, "007") {
		t.Errorf("expected versioned token, got %q", started.Token)
	}
	if started.AgentID != "agent-777" {
		t.Errorf("expected agent id, got %q", started.AgentID)
	}
	if started.AppID != "app123" {
		t.Errorf("expected app id echoed, got %q", started.AppID)
	}

	// Agent status pass-through.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/voice/agents/"+started.AgentID, nil)
	req.SetPathValue("id", started.AgentID)
	AgentStatusHandler{Sessions: mgr}.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var info agora.AgentInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("status: decode: %v", err)
	}
	if info.Status == "" {
		t.Error("expected a status string from the vendor")
	}

	// Stop.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/voice/stop",
		strings.NewReader(`{"session_id":"`+started.SessionID+`"}`))
	StopVoiceHandler{Config: cfg, Sessions: mgr}.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The local record reads ended.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/voice/sessions/"+started.SessionID, nil)
	req.SetPathValue("id", started.SessionID)
	SessionHandler{Sessions: mgr}.ServeHTTP(rec, req)

	var got session.Session
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("session get: decode: %v", err)
	}
	if got.Status != session.StatusEnded {
		t.Errorf("expected ended, got %s", got.Status)
	}
	if got.EndedAt == nil {
		t.Error("expected ended_at set")
	}
}

func TestVoiceStartLogsAuthenticatedCaller(t *testing.T) {
	mgr, cfg := newVoiceEnv(t, &stubAgentClient{})

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/start",
		strings.NewReader(`{"requester_id":"user42"}`))
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{APIKey: "sk-test"}))
	StartVoiceHandler{Config: cfg, Sessions: mgr, Logger: logger}.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := logs.String()
	if !strings.Contains(out, "voice session started") {
		t.Fatalf("expected start log line, got %q", out)
	}
	if !strings.Contains(out, "authenticated=true") {
		t.Errorf("expected authenticated caller recorded, got %q", out)
	}
}

func TestVoiceStartMissingRequester(t *testing.T) {
	mgr, cfg := newVoiceEnv(t, &stubAgentClient{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/start", strings.NewReader(`{}`))
	StartVoiceHandler{Config: cfg, Sessions: mgr}.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestVoiceStartProvisioningFailure(t *testing.T) {
	agents := &stubAgentClient{startErr: &agora.Error{StatusCode: 401, Message: "bad credentials"}}
	mgr, cfg := newVoiceEnv(t, agents)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/start",
		strings.NewReader(`{"requester_id":"user42"}`))
	StartVoiceHandler{Config: cfg, Sessions: mgr}.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Error *core.Error `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Type != core.ErrProvisioning {
		t.Errorf("expected provisioning_error, got %s", envelope.Error.Type)
	}
}

func TestVoiceStopUnknownSession(t *testing.T) {
	mgr, cfg := newVoiceEnv(t, &stubAgentClient{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/stop",
		strings.NewReader(`{"session_id":"missing"}`))
	StopVoiceHandler{Config: cfg, Sessions: mgr}.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestVoiceStopVendorFailureStillAcks(t *testing.T) {
	agents := &stubAgentClient{stopErr: &agora.Error{StatusCode: 500, Message: "internal"}}
	mgr, cfg := newVoiceEnv(t, agents)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/start",
		strings.NewReader(`{"requester_id":"user42"}`))
	StartVoiceHandler{Config: cfg, Sessions: mgr}.ServeHTTP(rec, req)
	var started startResponse
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/voice/stop",
		strings.NewReader(`{"session_id":"`+started.SessionID+`"}`))
	StopVoiceHandler{Config: cfg, Sessions: mgr}.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("stop should ack despite vendor failure, got %d", rec.Code)
	}
}
