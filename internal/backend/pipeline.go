package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"RouteDesk/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PipelineRequest represents the request body for the chatbot pipeline
type PipelineRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

// PipelineClient talks to the chatbot pipeline service
type PipelineClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	inst       telemetry.Instruments
}

// NewPipelineClient creates a pipeline client. The http.Client carries no
// timeout: a pending reply is never abandoned by the client.
func NewPipelineClient(url string, logger *slog.Logger, inst telemetry.Instruments) (*PipelineClient, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if url == "" {
		return nil, fmt.Errorf("pipeline url cannot be empty")
	}

	return &PipelineClient{
		url:        url,
		httpClient: &http.Client{},
		logger:     logger,
		inst:       inst,
	}, nil
}

// Ask sends one user input and returns the raw response text
func (c *PipelineClient) Ask(ctx context.Context, sessionID, input string) (string, error) {
	ctx, span := c.inst.Tracer.Start(ctx, "pipeline_call")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	start := time.Now()
	body, err := PostJSON(ctx, c.httpClient, c.url, PipelineRequest{
		SessionID: sessionID,
		UserInput: input,
	})
	telemetry.RequestDuration(ctx, c.inst.Meter, start, "/pipeline")

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("pipeline call failed", "session_id", sessionID, "error", err)
		return "", err
	}

	c.logger.Debug("pipeline replied", "session_id", sessionID, "bytes", len(body))
	return string(body), nil
}
