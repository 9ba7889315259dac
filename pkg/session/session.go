// Package session tracks voice sessions from provisioning to teardown.
package session

import "time"

// Status is a session's lifecycle state.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Session is one voice conversation: a requester, the RTC channel it runs
// on, and the remote agent serving it.
type Session struct {
	ID          string     `json:"id"`
	RequesterID string     `json:"requester_id"`
	ChannelName string     `json:"channel_name"`
	AgentID     string     `json:"agent_id"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}
