package agora

import "net/http"

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets the base URL for provisioning API requests.
// Default: https://api.agora.io/api/conversational-ai-agent/v2
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client for provisioning API requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}
