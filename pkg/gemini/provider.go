// Package gemini implements the Google Gemini API vendor client.
// It translates chat-style turns into Gemini's contents format and issues a
// single non-streaming generateContent call per request.
package gemini

import (
	"context"
	"net/http"

	"github.com/vango-go/voicegate/pkg/core/types"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when the inbound request names none.
	DefaultModel = "gemini-2.0-flash"

	// DefaultTemperature and DefaultMaxTokens apply when the inbound
	// request carries no generation parameters.
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 150
)

// modelFallbacks maps model names the agent platform still sends to models
// the API actually serves.
var modelFallbacks = map[string]string{
	"gemini-1.5-flash": "gemini-2.0-flash",
	"gemini-1.5-pro":   "gemini-2.0-flash",
}

// ResolveModel applies fallbacks and the default to a requested model name.
// The resolved name is what the bridge echoes back in response chunks.
func ResolveModel(model string) string {
	if model == "" {
		return DefaultModel
	}
	if fallback, ok := modelFallbacks[model]; ok {
		return fallback
	}
	return model
}

// Provider calls the Gemini generateContent API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Gemini provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateParams is one generation call: the translated conversation plus
// the generation knobs carried through from the inbound request.
type GenerateParams struct {
	Model       string
	Messages    []types.ChatMessage
	Temperature *float64
	MaxTokens   *int
}

// Generate translates the turns, makes one non-streaming generateContent
// call, and returns the reply text of the first candidate. The reply may be
// the empty string; callers must not treat that as an error.
func (p *Provider) Generate(ctx context.Context, params GenerateParams) (string, error) {
	model := ResolveModel(params.Model)
	geminiReq := buildRequest(params)

	respBody, err := p.doRequest(ctx, model, geminiReq)
	if err != nil {
		return "", err
	}

	return parseResponse(respBody)
}
