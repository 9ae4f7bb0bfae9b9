package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movies-mcp/internal/metrics"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	return New(cfg, newTestDispatcher(t), metrics.New(), zerolog.Nop())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Config{Token: "x"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, HealthResponse{Status: "ok", Name: "movies-mcp", Version: "1.0.0"}, body)
}

func TestToolsAndCall(t *testing.T) {
	s := newTestServer(t, Config{Token: "x"})

	// Unauthorized
	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Authorized tools
	req = httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.Header.Set("Authorization", "Bearer x")
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var tools map[string][]map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tools))
	assert.Len(t, tools["tools"], 6)

	// Call get_popular_movies
	body, _ := json.Marshal(map[string]any{"name": "get_popular_movies", "arguments": map[string]any{}})
	req = httptest.NewRequest(http.MethodPost, "/mcp/call", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer x")
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var res map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	text, isErr := toolText(t, map[string]any{"result": res})
	assert.False(t, isErr)
	assert.JSONEq(t, popularBody, text)
}

func TestCallErrorsStayInEnvelope(t *testing.T) {
	s := newTestServer(t, Config{})
	body, _ := json.Marshal(map[string]any{"name": "nope", "arguments": map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var res map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	text, isErr := toolText(t, map[string]any{"result": res})
	assert.True(t, isErr)
	assert.Equal(t, "Error: Unknown tool: nope", text)
}

func TestCallInvalidJSON(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Config{Token: "x"})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "movies_mcp_sse_sessions")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodOptions, "/message", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMessageUnknownSession(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/message?sessionId=missing", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Session not found")
}

func TestMessageInvalidJSON(t *testing.T) {
	s := newTestServer(t, Config{})
	sess := s.Sessions().Open()
	req := httptest.NewRequest(http.MethodPost, "/message?sessionId="+sess.ID(), strings.NewReader(`{"jsonrpc":`))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSSERequiresToken(t *testing.T) {
	s := newTestServer(t, Config{Token: "x"})
	req := httptest.NewRequest(http.MethodGet, "/sse", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, s.Sessions().Len())
}

// sseStream reads events from an open /sse response.
type sseStream struct {
	t  *testing.T
	br *bufio.Reader
}

func (s *sseStream) next() (string, string) {
	s.t.Helper()
	var event, data string
	for {
		line, err := s.br.ReadString('\n')
		require.NoError(s.t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func openSSE(t *testing.T, ts *httptest.Server) (*sseStream, string, func()) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/sse")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := &sseStream{t: t, br: bufio.NewReader(resp.Body)}
	event, endpoint := stream.next()
	require.Equal(t, "endpoint", event)
	require.True(t, strings.HasPrefix(endpoint, "/message?sessionId="), endpoint)
	return stream, endpoint, func() { resp.Body.Close() }
}

func post(t *testing.T, ts *httptest.Server, endpoint, msg string) int {
	t.Helper()
	resp, err := http.Post(ts.URL+endpoint, "application/json", strings.NewReader(msg))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestSSESessionsEndToEnd(t *testing.T) {
	s := newTestServer(t, Config{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()
	defer s.Close()

	a, endpointA, closeA := openSSE(t, ts)
	b, endpointB, closeB := openSSE(t, ts)
	defer closeB()
	assert.NotEqual(t, endpointA, endpointB)

	require.Equal(t, http.StatusAccepted, post(t, ts, endpointA, `{"jsonrpc":"2.0","id":"a1","method":"tools/call","params":{"name":"get_popular_movies","arguments":{}}}`))
	event, data := a.next()
	assert.Equal(t, "message", event)
	var reply map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &reply))
	assert.Equal(t, "a1", reply["id"])
	text, isErr := toolText(t, reply)
	assert.False(t, isErr)
	assert.JSONEq(t, popularBody, text)

	// Closing A leaves B usable.
	closeA()
	require.Eventually(t, func() bool { return s.Sessions().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, http.StatusNotFound, post(t, ts, endpointA, `{"jsonrpc":"2.0","id":1,"method":"ping"}`))

	require.Equal(t, http.StatusAccepted, post(t, ts, endpointB, `{"jsonrpc":"2.0","id":"b1","method":"tools/call","params":{"name":"nope","arguments":{}}}`))
	event, data = b.next()
	assert.Equal(t, "message", event)
	require.NoError(t, json.Unmarshal([]byte(data), &reply))
	assert.Equal(t, "b1", reply["id"])
	text, isErr = toolText(t, reply)
	assert.True(t, isErr)
	assert.Equal(t, "Error: Unknown tool: nope", text)
}
