package addresses

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"RouteDesk/internal/backend"
	"RouteDesk/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, slog.New(slog.NewTextHandler(io.Discard, nil)), telemetry.NoopInstruments())
	require.NoError(t, err)
	t.Cleanup(c.httpClient.CloseIdleConnections)
	return c
}

func sampleAddresses() []Address {
	cat := 1
	return []Address{
		{ID: 1, Address: "10 Downing St", TimeCategory: &cat},
		{ID: 2, Address: "221B Baker St"},
	}
}

func TestClient_Routes(t *testing.T) {
	tests := []struct {
		name  string
		call  func(c *Client, a []Address) *Request
		route string
	}{
		{"pairwise", (*Client).PairwiseDistances, "/api/addresses/pairwise/"},
		{"solution", (*Client).OptimalSolution, "/api/addresses/solution/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotBody map[string][]map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
				w.Write([]byte(`{"anything":[1,2,3]}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL+"/api/addresses/")
			raw, err := tt.call(c, sampleAddresses()).Do(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.route, gotPath)
			assert.JSONEq(t, `{"anything":[1,2,3]}`, string(raw))
			require.Len(t, gotBody["addresses"], 2)
			assert.Equal(t, "10 Downing St", gotBody["addresses"][0]["address"])
			assert.EqualValues(t, 1, gotBody["addresses"][0]["timeCategory"])
			_, has := gotBody["addresses"][1]["timeCategory"]
			assert.False(t, has, "absent time category is omitted")
		})
	}
}

func TestRequest_IsLazy(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	req := c.PairwiseDistances(sampleAddresses())
	assert.Equal(t, int32(0), hits.Load(), "building a request sends nothing")

	_, err := req.Do(context.Background())
	require.NoError(t, err)
	_, err = req.Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "each run issues one call")
}

func TestRequest_CopiesAddresses(t *testing.T) {
	var got map[string][]Address
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	addrs := sampleAddresses()
	req := newTestClient(t, srv.URL).OptimalSolution(addrs)
	addrs[0].Address = "changed later"

	_, err := req.Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10 Downing St", got["addresses"][0].Address)
}

func TestRequest_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad address"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).OptimalSolution(sampleAddresses()).Do(context.Background())
	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestRequest_StartResolvesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"route":[2,1]}`))
	}))
	defer srv.Close()

	p := newTestClient(t, srv.URL).OptimalSolution(sampleAddresses()).Start(context.Background())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("request did not resolve")
	}

	raw, err := p.Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"route":[2,1]}`, string(raw))

	again, err := p.Result()
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestRequest_Cancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	p := newTestClient(t, srv.URL).PairwiseDistances(sampleAddresses()).Start(context.Background())
	p.Cancel()

	_, err := p.Result()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("http://x", nil, telemetry.NoopInstruments())
	assert.Error(t, err)

	_, err = NewClient("", slog.Default(), telemetry.NoopInstruments())
	assert.Error(t, err)
}
