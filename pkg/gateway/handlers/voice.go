package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-go/voicegate/pkg/agora"
	"github.com/vango-go/voicegate/pkg/core"
	"github.com/vango-go/voicegate/pkg/gateway/auth"
	"github.com/vango-go/voicegate/pkg/gateway/config"
	"github.com/vango-go/voicegate/pkg/gateway/mw"
	"github.com/vango-go/voicegate/pkg/session"
)

// SessionManager is the lifecycle surface the voice routes drive.
type SessionManager interface {
	Start(ctx context.Context, requesterID, systemPrompt string) (*session.StartResult, error)
	Stop(ctx context.Context, sessionID string) (*session.Session, error)
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	ListActive(ctx context.Context) ([]*session.Session, error)
	AgentStatus(ctx context.Context, agentID string) (*agora.AgentInfo, error)
}

type startRequest struct {
	RequesterID  string `json:"requester_id"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

type startResponse struct {
	SessionID   string `json:"session_id"`
	ChannelName string `json:"channel_name"`
	Token       string `json:"token"`
	UID         uint32 `json:"uid"`
	AgentID     string `json:"agent_id"`
	AppID       string `json:"app_id"`
}

// StartVoiceHandler handles POST /v1/voice/start.
type StartVoiceHandler struct {
	Config   config.Config
	Sessions SessionManager
	Logger   *slog.Logger
}

func (h StartVoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req startRequest
	if err := decodeBody(w, r, h.Config.MaxBodyBytes, &req); err != nil {
		writeError(w, reqID, err)
		return
	}

	res, err := h.Sessions.Start(r.Context(), strings.TrimSpace(req.RequesterID), req.SystemPrompt)
	if err != nil {
		writeError(w, reqID, err)
		return
	}

	if h.Logger != nil {
		_, authed := auth.PrincipalFrom(r.Context())
		h.Logger.Info("voice session started",
			"request_id", reqID,
			"session_id", res.Session.ID,
			"channel", res.Session.ChannelName,
			"agent_id", res.AgentID,
			"authenticated", authed,
		)
	}

	writeJSON(w, http.StatusOK, startResponse{
		SessionID:   res.Session.ID,
		ChannelName: res.Session.ChannelName,
		Token:       res.Token,
		UID:         res.UID,
		AgentID:     res.AgentID,
		AppID:       h.Config.AgoraAppID,
	})
}

type stopRequest struct {
	SessionID string `json:"session_id"`
}

// StopVoiceHandler handles POST /v1/voice/stop.
type StopVoiceHandler struct {
	Config   config.Config
	Sessions SessionManager
	Logger   *slog.Logger
}

func (h StopVoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req stopRequest
	if err := decodeBody(w, r, h.Config.MaxBodyBytes, &req); err != nil {
		writeError(w, reqID, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, reqID, core.NewInvalidRequestErrorWithParam("session_id is required", "session_id"))
		return
	}

	s, err := h.Sessions.Stop(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, reqID, err)
		return
	}

	if h.Logger != nil {
		h.Logger.Info("voice session stopped", "request_id", reqID, "session_id", s.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "session stopped",
		"session_id": s.ID,
		"status":     s.Status,
	})
}

// SessionHandler handles GET /v1/voice/sessions/{id}.
type SessionHandler struct {
	Sessions SessionManager
}

func (h SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	s, err := h.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// AgentStatusHandler handles GET /v1/voice/agents/{id}. The vendor response
// passes through untouched.
type AgentStatusHandler struct {
	Sessions SessionManager
}

func (h AgentStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	info, err := h.Sessions.AgentStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(v); err != nil {
		return core.NewInvalidRequestError("invalid request body: " + err.Error())
	}
	return nil
}
