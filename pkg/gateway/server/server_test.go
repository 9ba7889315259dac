package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/voicegate/pkg/gateway/config"
	"github.com/vango-go/voicegate/pkg/session"
)

func testConfig() config.Config {
	return config.Config{
		Addr:                ":0",
		AuthMode:            config.AuthModeDisabled,
		APIKeys:             map[string]struct{}{},
		AgoraAppID:          "app123",
		AgoraAppCertificate: "cert456",
		AgoraCustomerID:     "cust",
		AgoraCustomerSecret: "secret",
		GeminiAPIKey:        "gm-key",
		TokenTTL:            time.Hour,
		AgentIdleTimeout:    300,
		MaxBodyBytes:        1 << 20,
		ReadHeaderTimeout:   10 * time.Second,
		ReadTimeout:         30 * time.Second,
		HandlerTimeout:      time.Minute,
		ShutdownGracePeriod: 30 * time.Second,
	}
}

func TestHealthRoute(t *testing.T) {
	s := New(testConfig(), slog.New(slog.DiscardHandler), session.NewMemoryStore())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header from middleware chain")
	}
}

func TestReadyDrainingRoute(t *testing.T) {
	s := New(testConfig(), slog.New(slog.DiscardHandler), session.NewMemoryStore())
	s.SetDraining(true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while draining, got %d", rec.Code)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	s := New(testConfig(), slog.New(slog.DiscardHandler), session.NewMemoryStore())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nonsense", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON envelope, got %q", ct)
	}
}

func TestStartRouteThroughVendor(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/join") {
			t.Fatalf("unexpected vendor path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"agent_id": "agent-1", "status": "RUNNING"})
	}))
	defer vendor.Close()

	cfg := testConfig()
	cfg.AgoraBaseURL = vendor.URL
	s := New(cfg, slog.New(slog.DiscardHandler), session.NewMemoryStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/start",
		strings.NewReader(`{"requester_id":"user42"}`))
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID   string `json:"session_id"`
		ChannelName string `json:"channel_name"`
		Token       string `json:"token"`
		AgentID     string `json:"agent_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AgentID != "agent-1" {
		t.Errorf("expected vendor agent id, got %q", resp.AgentID)
	}
	if !strings.Contains(resp.ChannelName, "user42") {
		t.Errorf("channel should embed requester, got %q", resp.ChannelName)
	}
	if !strings.HasPrefix(resp.Token, "007") {
		t.Errorf("expected versioned token, got %q", resp.Token)
	}

	// The session is immediately readable.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/voice/sessions/"+resp.SessionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("session get: expected 200, got %d", rec.Code)
	}
}

func TestAuthRequiredGuardsRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = config.AuthModeRequired
	cfg.APIKeys = map[string]struct{}{"vg_sk_a": {}}
	s := New(cfg, slog.New(slog.DiscardHandler), session.NewMemoryStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/start", strings.NewReader(`{"requester_id":"u"}`))
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", rec.Code)
	}
}
