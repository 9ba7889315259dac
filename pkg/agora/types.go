package agora

import "encoding/json"

// joinRequest is the agent provisioning payload.
// Note: the Conversational AI API uses snake_case field names.
type joinRequest struct {
	Name       string          `json:"name"`
	Properties joinProperties  `json:"properties"`
}

type joinProperties struct {
	Channel         string        `json:"channel"`
	Token           string        `json:"token"`
	AgentRTCUID     string        `json:"agent_rtc_uid"`
	RemoteRTCUIDs   []string      `json:"remote_rtc_uids"`
	EnableStringUID bool          `json:"enable_string_uid"`
	IdleTimeout     int           `json:"idle_timeout"`
	EnableGreeting  bool          `json:"enable_greeting"`
	LLM             llmProperties `json:"llm"`
	ASR             asrProperties `json:"asr"`
	TTS             ttsProperties `json:"tts"`
}

// llmProperties points the agent's language-model call-out at the bridge.
type llmProperties struct {
	URL             string          `json:"url"`
	SystemMessages  []SystemMessage `json:"system_messages"`
	MaxHistory      int             `json:"max_history"`
	GreetingMessage string          `json:"greeting_message"`
	FailureMessage  string          `json:"failure_message"`
	Params          llmParams       `json:"params"`
}

// SystemMessage seeds the agent's conversation with an instruction turn.
type SystemMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmParams struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type asrProperties struct {
	Vendor   string `json:"vendor"`
	Language string `json:"language"`
}

type ttsProperties struct {
	Vendor string    `json:"vendor"`
	Params ttsParams `json:"params"`
}

type ttsParams struct {
	Key        string  `json:"key"`
	ModelID    string  `json:"model_id"`
	VoiceID    string  `json:"voice_id"`
	SampleRate int     `json:"sample_rate"`
	Speed      float64 `json:"speed"`
}

// AgentInfo is the provisioning API's view of a remote agent. Raw carries the
// vendor's full response document for callers that surface it verbatim.
type AgentInfo struct {
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`

	Raw json.RawMessage `json:"-"`
}
