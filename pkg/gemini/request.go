package gemini

import (
	"github.com/vango-go/voicegate/pkg/core/types"
)

// geminiRequest is the Gemini API request format.
// Note: Gemini API uses camelCase for JSON field names.
type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

// geminiContent represents a content object in Gemini format.
type geminiContent struct {
	Role  string       `json:"role"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

// geminiPart represents a single part within content.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiGenConfig contains generation configuration.
type geminiGenConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

const (
	roleUser  = "user"
	roleModel = "model"

	// systemAck is the synthetic model turn paired with each system turn so
	// Gemini's user/model alternation convention holds without losing the
	// instruction.
	systemAck = "Understood. I will act as described."

	// emptyTurnText replaces an empty user turn. Empty turns are never
	// dropped: dropping would change turn parity.
	emptyTurnText = "Hello"
)

// buildRequest converts inbound chat turns to a Gemini request.
func buildRequest(params GenerateParams) *geminiRequest {
	req := &geminiRequest{
		Contents: translateMessages(params.Messages),
	}

	temperature := params.Temperature
	if temperature == nil {
		t := DefaultTemperature
		temperature = &t
	}
	maxTokens := params.MaxTokens
	if maxTokens == nil {
		m := DefaultMaxTokens
		maxTokens = &m
	}
	req.GenerationConfig = &geminiGenConfig{
		Temperature:     temperature,
		MaxOutputTokens: maxTokens,
	}

	return req
}

// translateMessages maps chat turns onto Gemini's user/model vocabulary,
// preserving the relative order of the original turns:
//   - a system turn expands into a user turn carrying the instruction plus a
//     synthetic model acknowledgment (exactly two contents),
//   - a user turn maps to one user content (placeholder text when empty),
//   - an assistant turn maps to one model content.
func translateMessages(messages []types.ChatMessage) []geminiContent {
	contents := make([]geminiContent, 0, len(messages)+1)

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			contents = append(contents,
				geminiContent{Role: roleUser, Parts: []geminiPart{{Text: msg.Content}}},
				geminiContent{Role: roleModel, Parts: []geminiPart{{Text: systemAck}}},
			)
		case types.RoleUser:
			text := msg.Content
			if text == "" {
				text = emptyTurnText
			}
			contents = append(contents, geminiContent{Role: roleUser, Parts: []geminiPart{{Text: text}}})
		case types.RoleAssistant:
			contents = append(contents, geminiContent{Role: roleModel, Parts: []geminiPart{{Text: msg.Content}}})
		}
	}

	return contents
}
