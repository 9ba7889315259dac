package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vango-go/voicegate/pkg/core"
	"github.com/vango-go/voicegate/pkg/core/types"
	"github.com/vango-go/voicegate/pkg/gemini"
	"github.com/vango-go/voicegate/pkg/gateway/config"
	"github.com/vango-go/voicegate/pkg/gateway/mw"
	"github.com/vango-go/voicegate/pkg/gateway/sse"
)

// Generator is the LLM call the bridge makes.
type Generator interface {
	Generate(ctx context.Context, params gemini.GenerateParams) (string, error)
}

// CompletionsHandler bridges chat completion requests to Gemini and re-emits
// the reply as a chunk stream.
type CompletionsHandler struct {
	Config   config.Config
	Provider Generator
	Logger   *slog.Logger

	// Now stamps chunk ids and created timestamps. Nil means time.Now.
	Now func() time.Time
}

func (h CompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes))
	if err != nil {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:      core.ErrInvalidRequest,
			Message:   "failed to read request body",
			RequestID: reqID,
		}, http.StatusBadRequest)
		return
	}

	req, err := types.UnmarshalChatCompletionRequest(body)
	if err != nil {
		writeError(w, reqID, err)
		return
	}

	model := gemini.ResolveModel(req.Model)

	// The vendor call happens before the first response byte so a failure
	// still comes back as a structured error instead of a broken stream.
	text, err := h.Provider.Generate(r.Context(), gemini.GenerateParams{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("generation failed", "request_id", reqID, "error", err)
		}
		writeError(w, reqID, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream, err := sse.New(w)
	if err != nil {
		writeError(w, reqID, err)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	ts := now()
	id := fmt.Sprintf("chatcmpl-%d", ts.UnixMilli())

	contentChunk := types.ChatCompletionChunk{
		ID:      id,
		Object:  types.ChunkObject,
		Created: ts.Unix(),
		Model:   model,
		Choices: []types.ChunkChoice{{
			Index: 0,
			Delta: types.ChunkDelta{Content: &text},
		}},
	}
	if err := stream.Send(contentChunk); err != nil {
		// Headers are out; nothing structured can be sent anymore.
		if h.Logger != nil {
			h.Logger.Warn("stream write failed", "request_id", reqID, "error", err)
		}
		return
	}

	stop := "stop"
	closingChunk := types.ChatCompletionChunk{
		ID:      id,
		Object:  types.ChunkObject,
		Created: ts.Unix(),
		Model:   model,
		Choices: []types.ChunkChoice{{
			Index:        0,
			Delta:        types.ChunkDelta{},
			FinishReason: &stop,
		}},
	}
	if err := stream.Send(closingChunk); err != nil {
		return
	}
	_ = stream.SendDone()
}
