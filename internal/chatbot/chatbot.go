package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"RouteDesk/internal/config"
	"RouteDesk/internal/session"
	"RouteDesk/internal/store"

	"go.opentelemetry.io/otel/metric"
)

// SessionStore is the persistence the interactive chat needs: key-value
// access for the session id plus the transcript archive.
type SessionStore interface {
	store.Store
	SaveSession(ctx context.Context, sess *session.Session) error
	LoadSession(ctx context.Context, id string) (*session.Session, error)
}

// ChatBot represents the interactive chat application
type ChatBot struct {
	config     config.Config
	store      SessionStore
	repo       *store.Repository
	asker      Asker
	logger     *slog.Logger
	meter      metric.Meter
	controller *Controller
	startTime  time.Time

	in  io.Reader
	out io.Writer
}

// NewChatBot resolves the session id, restores its archived transcript if
// any, and returns a chat ready to Run.
func NewChatBot(ctx context.Context, cfg config.Config, asker Asker, st SessionStore, logger *slog.Logger, meter metric.Meter, in io.Reader, out io.Writer) (*ChatBot, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	cb := &ChatBot{
		config: cfg,
		store:  st,
		repo:   store.NewRepository(st),
		asker:  asker,
		logger: logger,
		meter:  meter,
		in:     in,
		out:    out,
	}

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	var sessionID string
	if cfg.NewSession {
		sessionID = session.NewID()
	} else {
		stored, err := cb.repo.SessionID(ctx)
		if err != nil {
			logger.Warn("failed to read stored session id", "error", err)
		}
		sessionID = session.ResolveID(cfg.SessionID, stored)
	}

	if err := cb.startSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return cb, nil
}

// startSession switches the controller to sessionID, seeding the transcript
// from the archive when the session was seen before
func (cb *ChatBot) startSession(ctx context.Context, sessionID string) error {
	if err := cb.repo.SetSessionID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to persist session id: %w", err)
	}

	transcript := session.NewTranscript()
	cb.startTime = time.Now()

	if sess, err := cb.store.LoadSession(ctx, sessionID); err == nil {
		transcript = session.NewTranscript(sess.Messages...)
		cb.startTime = sess.StartTime
		cb.logger.Info("loaded existing session", "session_id", sessionID, "message_count", len(sess.Messages))
	} else {
		cb.logger.Info("created new session", "session_id", sessionID)
	}

	cb.controller = NewController(cb.asker, sessionID, transcript, cb.logger, cb.meter)
	return nil
}

// saveSession archives the current transcript
func (cb *ChatBot) saveSession(ctx context.Context) error {
	sess := &session.Session{
		ID:        cb.controller.SessionID(),
		StartTime: cb.startTime,
		Messages:  cb.controller.Transcript().Messages(),
	}
	if err := cb.store.SaveSession(ctx, sess); err != nil {
		return err
	}
	cb.logger.Info("session saved", "session_id", sess.ID, "message_count", len(sess.Messages))
	return nil
}

// Controller exposes the active transcript controller
func (cb *ChatBot) Controller() *Controller {
	return cb.controller
}

// handleCommand handles special commands
func (cb *ChatBot) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new-session":
		if err := cb.saveSession(ctx); err != nil {
			cb.logger.Error("failed to save current session", "error", err)
		}
		if err := cb.startSession(ctx, session.NewID()); err != nil {
			return false, err
		}
		fmt.Fprintln(cb.out, "Started new session:", cb.controller.SessionID())
		return false, nil

	case "/session":
		fmt.Fprintln(cb.out, "Session:", cb.controller.SessionID())
		return false, nil

	case "/history":
		for _, msg := range cb.controller.Transcript().Messages() {
			fmt.Fprintf(cb.out, "[%s] %s: %s\n", msg.Timestamp.Format(time.Kitchen), speaker(msg.Type), msg.Text)
		}
		return false, nil

	case "/help":
		fmt.Fprintln(cb.out, "Available commands:")
		fmt.Fprintln(cb.out, "  /quit, /exit        - Exit the chat")
		fmt.Fprintln(cb.out, "  /new-session        - Start a new chat session")
		fmt.Fprintln(cb.out, "  /session            - Show the current session id")
		fmt.Fprintln(cb.out, "  /history            - Show the transcript")
		fmt.Fprintln(cb.out, "  /help               - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", parts[0])
	}
}

func speaker(msgType string) string {
	if msgType == session.TypeUser {
		return "You"
	}
	return "Bot"
}

// readLines feeds scanned input lines to the returned channel until the
// reader is exhausted or stop is closed
func readLines(in io.Reader, stop <-chan struct{}, logger *slog.Logger) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("failed to read input", "error", err)
		}
	}()
	return lines
}

// Run starts the interactive loop and archives the session on exit.
// Cancelling ctx ends the loop, even while a reply is outstanding; the
// pending pipeline call keeps running but is no longer waited on.
func (cb *ChatBot) Run(ctx context.Context) error {
	fmt.Fprintln(cb.out, "=== RouteDesk Chat ===")
	fmt.Fprintf(cb.out, "Session: %s\n", cb.controller.SessionID())
	fmt.Fprintln(cb.out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(cb.out)

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(cb.in, stop, cb.logger)

loop:
	for ctx.Err() == nil {
		fmt.Fprint(cb.out, "You: ")

		var input string
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			input = line
		}

		trimmed := strings.TrimSpace(input)

		if strings.HasPrefix(trimmed, "/") {
			shouldQuit, err := cb.handleCommand(ctx, trimmed)
			if err != nil {
				fmt.Fprintf(cb.out, "Error: %v\n", err)
				cb.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break loop
			}
			continue
		}

		cb.controller.SetInput(input)
		reply, ok := cb.controller.Send(ctx)
		if !ok {
			continue
		}

		select {
		case <-ctx.Done():
			cb.logger.Warn("interrupted while awaiting reply", "session_id", cb.controller.SessionID())
			break loop
		case msg := <-reply:
			fmt.Fprintf(cb.out, "Bot: %s\n\n", msg.Text)
		}

		if err := cb.saveSession(ctx); err != nil {
			cb.logger.Error("failed to save session", "error", err)
		}
	}

	if ctx.Err() != nil {
		fmt.Fprintln(cb.out)
		cb.logger.Info("chat interrupted", "session_id", cb.controller.SessionID())
	}

	// the archive must land even when ctx was the reason we stopped
	if err := cb.saveSession(context.WithoutCancel(ctx)); err != nil {
		cb.logger.Error("failed to save session on exit", "error", err)
		return err
	}

	fmt.Fprintln(cb.out, "Goodbye!")
	return nil
}
