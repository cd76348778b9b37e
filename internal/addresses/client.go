package addresses

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"RouteDesk/internal/backend"
	"RouteDesk/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	routePairwise = "/pairwise/"
	routeSolution = "/solution/"
)

// Client wraps the address optimization API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	inst       telemetry.Instruments
}

// NewClient creates an address API client rooted at baseURL
func NewClient(baseURL string, logger *slog.Logger, inst telemetry.Instruments) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
		inst:       inst,
	}, nil
}

// PairwiseDistances prepares a POST to /pairwise/. Nothing is sent until the
// returned request is run.
func (c *Client) PairwiseDistances(addrs []Address) *Request {
	return c.newRequest(routePairwise, addrs)
}

// OptimalSolution prepares a POST to /solution/. Nothing is sent until the
// returned request is run.
func (c *Client) OptimalSolution(addrs []Address) *Request {
	return c.newRequest(routeSolution, addrs)
}

func (c *Client) newRequest(route string, addrs []Address) *Request {
	body := make([]Address, len(addrs))
	copy(body, addrs)
	return &Request{client: c, route: route, body: addressesRequest{Addresses: body}}
}

// Request is a prepared, not yet sent, address API call. Every Do or Start
// issues exactly one HTTP request.
type Request struct {
	client *Client
	route  string
	body   addressesRequest
}

// Do sends the request and blocks for the raw response body. The shape of
// the body is not validated.
func (r *Request) Do(ctx context.Context) (json.RawMessage, error) {
	c := r.client

	ctx, span := c.inst.Tracer.Start(ctx, "address_api_call")
	defer span.End()
	span.SetAttributes(
		attribute.String("url.path", r.route),
		attribute.Int("addresses.count", len(r.body.Addresses)),
	)

	start := time.Now()
	body, err := backend.PostJSON(ctx, c.httpClient, c.baseURL+r.route, r.body)
	telemetry.RequestDuration(ctx, c.inst.Meter, start, r.route)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("address api call failed", "route", r.route, "error", err)
		return nil, err
	}

	c.logger.Info("address api call completed", "route", r.route, "addresses", len(r.body.Addresses))
	return json.RawMessage(body), nil
}

// Start sends the request in the background. The returned Pending resolves
// exactly once; cancelling ctx or calling Cancel aborts the call.
func (r *Request) Start(ctx context.Context) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		defer cancel()
		p.result, p.err = r.Do(ctx)
	}()

	return p
}

// Pending is the single outcome of a started request
type Pending struct {
	cancel context.CancelFunc
	done   chan struct{}
	result json.RawMessage
	err    error
}

// Done is closed once the outcome is available
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the request finished
func (p *Pending) Result() (json.RawMessage, error) {
	<-p.done
	return p.result, p.err
}

func (p *Pending) Cancel() {
	p.cancel()
}
