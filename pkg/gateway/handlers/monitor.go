package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vango-go/voicegate/pkg/convlog"
	"github.com/vango-go/voicegate/pkg/core"
	"github.com/vango-go/voicegate/pkg/gateway/lifecycle"
	"github.com/vango-go/voicegate/pkg/gateway/mw"
	"github.com/vango-go/voicegate/pkg/session"
)

// maxActiveSessions caps the active-session listing.
const maxActiveSessions = 10

// ActiveSessionsHandler handles GET /v1/monitor/sessions/active.
type ActiveSessionsHandler struct {
	Sessions SessionManager
}

func (h ActiveSessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	active, err := h.Sessions.ListActive(r.Context())
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	if len(active) > maxActiveSessions {
		active = active[:maxActiveSessions]
	}
	if active == nil {
		active = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": active})
}

// LogsHandler serves and clears a session's conversation transcript. It is
// registered for both GET and DELETE on /v1/monitor/sessions/{id}/logs.
type LogsHandler struct {
	Sessions SessionManager
	Log      *convlog.Log
}

func (h LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	id := r.PathValue("id")

	if _, err := h.Sessions.Get(r.Context(), id); err != nil {
		writeError(w, reqID, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": id,
			"entries":    h.Log.Entries(id),
		})
	case http.MethodDelete:
		h.Log.Clear(id)
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": id,
			"message":    "logs cleared",
		})
	default:
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:    core.ErrInvalidRequest,
			Message: "method not allowed",
			Code:    "method_not_allowed",
		}, http.StatusMethodNotAllowed)
	}
}

// feedMessage is one transcript utterance pushed over the feed socket.
type feedMessage struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// FeedHandler handles GET /v1/monitor/sessions/{id}/feed: a websocket that
// ingests transcript utterances into the conversation log as the platform
// relays them.
type FeedHandler struct {
	Sessions  SessionManager
	Log       *convlog.Log
	Logger    *slog.Logger
	Lifecycle *lifecycle.Lifecycle
}

func (h FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	id := r.PathValue("id")

	if h.Lifecycle.IsDraining() {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:    core.ErrAPI,
			Message: "gateway is draining",
			Code:    "draining",
		}, http.StatusServiceUnavailable)
		return
	}
	if _, err := h.Sessions.Get(r.Context(), id); err != nil {
		writeError(w, reqID, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(64 * 1024)

	for {
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if h.Logger != nil {
					h.Logger.Warn("feed closed abnormally", "session_id", id, "error", err)
				}
			}
			return
		}

		speaker := convlog.Speaker(msg.Speaker)
		if speaker != convlog.SpeakerUser && speaker != convlog.SpeakerAgent {
			_ = conn.WriteJSON(map[string]string{"error": "speaker must be user or agent"})
			continue
		}
		entry := h.Log.Append(id, speaker, msg.Content)
		_ = conn.WriteJSON(entry)
	}
}
