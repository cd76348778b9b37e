package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultID is the session id sent to the pipeline when none was configured or stored
const DefaultID = "user_session_123"

// Message types
const (
	TypeUser = "user"
	TypeBot  = "bot"
)

// Message represents a single chat message
type Message struct {
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a chat session
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	Messages  []Message `json:"messages"`
}

// Transcript is an ordered, append-only list of messages. It is safe for
// concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript returns a transcript seeded with prior messages
func NewTranscript(prior ...Message) *Transcript {
	t := &Transcript{}
	t.messages = append(t.messages, prior...)
	return t
}

// Append adds a message at the end
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of the transcript
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// NewID mints a fresh session id
func NewID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ResolveID picks the pipeline session id: explicit beats stored beats DefaultID.
func ResolveID(explicit, stored string) string {
	if explicit != "" {
		return explicit
	}
	if stored != "" {
		return stored
	}
	return DefaultID
}
