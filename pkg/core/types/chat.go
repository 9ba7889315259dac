// Package types defines the chat-completions wire records the bridge
// exchanges with the agent platform.
package types

import (
	"encoding/json"

	"github.com/vango-go/voicegate/pkg/core"
)

// Chat roles on the inbound wire. Ordering across turns is caller-defined
// and preserved; roles are not required to alternate.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged turn of an inbound request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the chat-completions request body the agent
// platform posts to the bridge.
type ChatCompletionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// UnmarshalChatCompletionRequest decodes and validates an inbound request.
// Unknown fields are tolerated (the platform adds fields over time); roles
// are not: an unrecognized role is rejected before any stream starts.
func UnmarshalChatCompletionRequest(data []byte) (*ChatCompletionRequest, error) {
	var req ChatCompletionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, core.NewInvalidRequestError("invalid request body: " + err.Error())
	}
	if len(req.Messages) == 0 {
		return nil, core.NewInvalidRequestErrorWithParam("messages must not be empty", "messages")
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return nil, core.NewInvalidRequestErrorWithParam("unsupported message role: "+msg.Role, "messages")
		}
	}
	return &req, nil
}

// ChatCompletionChunk is one SSE data frame of the simulated response
// stream. The id/object/model fields echo values derived from the inbound
// request so the caller can correlate request to response.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkObject is the object tag of every chunk.
const ChunkObject = "chat.completion.chunk"

// ChunkChoice carries one delta. FinishReason is null until the closing
// chunk, which carries "stop" with an empty delta.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta is the incremental payload of a chunk: content only, no role
// tag. Content is a pointer so an empty reply still serializes as an
// explicit content delta instead of being dropped.
type ChunkDelta struct {
	Content *string `json:"content,omitempty"`
}
