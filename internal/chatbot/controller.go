package chatbot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"RouteDesk/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FallbackMessage is shown in place of a reply whenever the pipeline call fails
const FallbackMessage = "Error: Could not connect to chatbot service."

// Asker sends one user input to the chatbot pipeline and returns the raw reply
type Asker interface {
	Ask(ctx context.Context, sessionID, input string) (string, error)
}

// State of the transcript controller
type State int

const (
	Idle State = iota
	Awaiting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Awaiting:
		return "awaiting"
	default:
		return "unknown"
	}
}

// Controller owns a transcript and the single in-flight pipeline request
type Controller struct {
	asker      Asker
	sessionID  string
	transcript *session.Transcript
	logger     *slog.Logger
	counter    metric.Int64Counter

	mu    sync.Mutex
	state State
	input string
}

// NewController creates an idle controller appending to transcript
func NewController(asker Asker, sessionID string, transcript *session.Transcript, logger *slog.Logger, meter metric.Meter) *Controller {
	counter, err := meter.Int64Counter(
		"chat.messages",
		metric.WithDescription("Chat messages appended to the transcript"),
	)
	if err != nil {
		logger.Warn("failed to create message counter", "error", err)
	}

	return &Controller{
		asker:      asker,
		sessionID:  sessionID,
		transcript: transcript,
		logger:     logger,
		counter:    counter,
	}
}

// SetInput replaces the pending draft
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = s
}

// Input returns the current draft
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// State reports whether a reply is awaited
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID is the id sent with every pipeline request
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Transcript returns the live transcript, not a copy
func (c *Controller) Transcript() *session.Transcript {
	return c.transcript
}

// Send submits the draft. It does nothing and reports false when the draft
// is blank or a reply is still awaited. Otherwise the user message is
// appended before Send returns, and the returned channel yields the bot
// message once the pipeline call resolves.
//
// The pipeline call is detached from ctx cancellation: once sent, a request
// always runs to completion.
func (c *Controller) Send(ctx context.Context) (<-chan session.Message, bool) {
	c.mu.Lock()
	if strings.TrimSpace(c.input) == "" || c.state == Awaiting {
		c.mu.Unlock()
		return nil, false
	}

	text := c.input
	c.transcript.Append(session.Message{Text: text, Type: session.TypeUser, Timestamp: time.Now()})
	c.input = ""
	c.state = Awaiting
	c.mu.Unlock()

	c.count(ctx, session.TypeUser)

	reply := make(chan session.Message, 1)
	go func() {
		defer close(reply)
		reply <- c.resolve(context.WithoutCancel(ctx), text)
	}()

	return reply, true
}

func (c *Controller) resolve(ctx context.Context, text string) session.Message {
	body, err := c.asker.Ask(ctx, c.sessionID, text)

	msg := session.Message{Type: session.TypeBot}
	if err != nil {
		c.logger.Error("error communicating with chatbot", "session_id", c.sessionID, "error", err)
		msg.Text = FallbackMessage
	} else {
		msg.Text = Normalize(body)
	}
	msg.Timestamp = time.Now()

	c.mu.Lock()
	c.transcript.Append(msg)
	c.state = Idle
	c.mu.Unlock()

	c.count(ctx, session.TypeBot)
	return msg
}

func (c *Controller) count(ctx context.Context, msgType string) {
	if c.counter == nil {
		return
	}
	c.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("message.type", msgType)))
}

// Normalize turns a raw pipeline reply into display text: surrounding
// whitespace is trimmed, one pair of enclosing double quotes is removed and
// every literal \n sequence becomes a line break.
func Normalize(body string) string {
	s := strings.TrimSpace(body)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `\n`, "\n")
}
