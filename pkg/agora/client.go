// Package agora wraps the Agora Conversational AI provisioning API and the
// RTC AccessToken2 credential format. The client is fire-and-provision: a 2xx
// on join means the platform accepted the agent configuration, not that
// speech is flowing, and no call is ever retried because agent creation is
// not idempotent.
package agora

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default Conversational AI provisioning endpoint.
	DefaultBaseURL = "https://api.agora.io/api/conversational-ai-agent/v2"

	// DefaultAgentUID is the reserved RTC uid the remote agent joins with.
	DefaultAgentUID uint32 = 999

	// DefaultSystemPrompt seeds the agent when the caller supplies none.
	DefaultSystemPrompt = "You are a helpful study assistant chatbot."
)

// AgentConfig carries the speech and language-model settings embedded in
// every join payload: where the agent's LLM call-out goes, how it greets, and
// which ASR/TTS vendors run inside the platform.
type AgentConfig struct {
	AgentUID    uint32
	IdleTimeout time.Duration

	// LLMURL is the bridge's public chat-completions endpoint.
	LLMURL          string
	Model           string
	Temperature     float64
	MaxTokens       int
	MaxHistory      int
	GreetingMessage string
	FailureMessage  string

	ASRVendor   string
	ASRLanguage string

	TTSVendor     string
	TTSKey        string
	TTSModelID    string
	TTSVoiceID    string
	TTSSampleRate int
	TTSSpeed      float64
}

// Client calls the remote provisioning API. Basic auth is derived from the
// customer id/secret pair on every call; it is a static service credential,
// not a per-session token, so there is no TTL to track.
type Client struct {
	httpClient *http.Client
	baseURL    string

	appID          string
	customerID     string
	customerSecret string

	tokens *TokenIssuer
	agent  AgentConfig
}

// New creates a provisioning client. The issuer supplies the fresh agent
// token embedded in every join payload.
func New(appID, customerID, customerSecret string, tokens *TokenIssuer, agent AgentConfig, opts ...Option) *Client {
	if agent.AgentUID == 0 {
		agent.AgentUID = DefaultAgentUID
	}
	c := &Client{
		httpClient:     &http.Client{},
		baseURL:        DefaultBaseURL,
		appID:          appID,
		customerID:     customerID,
		customerSecret: customerSecret,
		tokens:         tokens,
		agent:          agent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartAgent provisions a conversational agent on channel. The payload embeds
// a fresh publisher token for the reserved agent uid and points the agent's
// LLM call-out at the bridge URL.
func (c *Client) StartAgent(ctx context.Context, channel, requesterID, systemPrompt string) (*AgentInfo, error) {
	token, err := c.tokens.Issue(channel, c.agent.AgentUID, RolePublisher)
	if err != nil {
		return nil, fmt.Errorf("issue agent token: %w", err)
	}

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	payload := joinRequest{
		Name: fmt.Sprintf("agent_%s_%d", requesterID, time.Now().UnixMilli()),
		Properties: joinProperties{
			Channel:         channel,
			Token:           token,
			AgentRTCUID:     strconv.FormatUint(uint64(c.agent.AgentUID), 10),
			RemoteRTCUIDs:   []string{"*"},
			EnableStringUID: false,
			IdleTimeout:     int(c.agent.IdleTimeout / time.Second),
			EnableGreeting:  true,
			LLM: llmProperties{
				URL:             c.agent.LLMURL,
				SystemMessages:  []SystemMessage{{Role: "system", Content: systemPrompt}},
				MaxHistory:      c.agent.MaxHistory,
				GreetingMessage: c.agent.GreetingMessage,
				FailureMessage:  c.agent.FailureMessage,
				Params: llmParams{
					Model:       c.agent.Model,
					Temperature: c.agent.Temperature,
					MaxTokens:   c.agent.MaxTokens,
				},
			},
			ASR: asrProperties{
				Vendor:   c.agent.ASRVendor,
				Language: c.agent.ASRLanguage,
			},
			TTS: ttsProperties{
				Vendor: c.agent.TTSVendor,
				Params: ttsParams{
					Key:        c.agent.TTSKey,
					ModelID:    c.agent.TTSModelID,
					VoiceID:    c.agent.TTSVoiceID,
					SampleRate: c.agent.TTSSampleRate,
					Speed:      c.agent.TTSSpeed,
				},
			},
		},
	}

	url := fmt.Sprintf("%s/projects/%s/join", c.baseURL, c.appID)
	return c.doAgent(ctx, http.MethodPost, url, payload)
}

// QueryAgent is a read-only status probe. A failed probe means "unknown",
// not "stopped": the platform pushes no lifecycle events back to us, so
// the result is only as fresh as this call.
func (c *Client) QueryAgent(ctx context.Context, agentID string) (*AgentInfo, error) {
	url := fmt.Sprintf("%s/projects/%s/agents/%s", c.baseURL, c.appID, agentID)
	return c.doAgent(ctx, http.MethodGet, url, nil)
}

// StopAgent asks the platform to remove the agent from its channel. Callers
// must tolerate failure here: the agent may have already left on idle
// timeout before the explicit stop arrives.
func (c *Client) StopAgent(ctx context.Context, agentID string) error {
	url := fmt.Sprintf("%s/projects/%s/agents/%s/leave", c.baseURL, c.appID, agentID)
	_, err := c.do(ctx, http.MethodPost, url, struct{}{})
	return err
}

func (c *Client) doAgent(ctx context.Context, method, url string, payload any) (*AgentInfo, error) {
	body, err := c.do(ctx, method, url, payload)
	if err != nil {
		return nil, err
	}
	info := &AgentInfo{Raw: body}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, &Error{Message: fmt.Sprintf("unmarshal agent response: %v", err), Body: string(body)}
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal provisioning payload: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build provisioning request: %w", err)
	}
	req.Header.Set("Authorization", c.basicAuth())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}
	return body, nil
}

// basicAuth recomputes the Authorization header per call so a rotated
// customer secret takes effect without restarting the client.
func (c *Client) basicAuth() string {
	creds := c.customerID + ":" + c.customerSecret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}
