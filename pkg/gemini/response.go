package gemini

import (
	"encoding/json"
	"strings"
)

// geminiResponse is the Gemini API response format.
type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

// geminiCandidate represents a single candidate response.
type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

// parseResponse extracts the first candidate's reply text. Multiple parts
// are concatenated; an empty reply is returned as-is, not treated as an
// error, since the bridge must still emit a content delta for it.
func parseResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &Error{
			Type:    ErrVendor,
			Message: "unmarshal response: " + err.Error(),
		}
	}

	if len(resp.Candidates) == 0 {
		return "", &Error{
			Type:    ErrAPI,
			Message: "no candidates in response",
		}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
