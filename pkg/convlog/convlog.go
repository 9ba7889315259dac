// Package convlog keeps in-memory conversation transcripts keyed by session.
// Entries live only as long as the process; nothing is persisted.
package convlog

import (
	"sync"
	"time"
)

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Entry is one utterance in a session transcript.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   Speaker   `json:"speaker"`
	Content   string    `json:"content"`
}

// Log holds transcripts for all sessions the process has seen.
type Log struct {
	mu      sync.RWMutex
	entries map[string][]Entry

	now func() time.Time
}

// New creates an empty Log.
func New() *Log {
	return &Log{
		entries: make(map[string][]Entry),
		now:     time.Now,
	}
}

// Append records one utterance for the session.
func (l *Log) Append(sessionID string, speaker Speaker, content string) Entry {
	e := Entry{Timestamp: l.now(), Speaker: speaker, Content: content}
	l.mu.Lock()
	l.entries[sessionID] = append(l.entries[sessionID], e)
	l.mu.Unlock()
	return e
}

// Entries returns a copy of the session's transcript in append order. An
// unknown session yields an empty transcript, not an error.
func (l *Log) Entries(sessionID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.entries[sessionID]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Clear drops the session's transcript.
func (l *Log) Clear(sessionID string) {
	l.mu.Lock()
	delete(l.entries, sessionID)
	l.mu.Unlock()
}
