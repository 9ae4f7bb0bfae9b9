package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"movies-mcp/internal/dispatch"
	"movies-mcp/internal/tmdb"
)

const popularBody = `{"page":1,"results":[{"id":42,"title":"Example"}],"total_pages":1,"total_results":1}`

// newTestDispatcher returns a dispatcher backed by a stub TMDB that answers
// every list endpoint with popularBody and everything else with 404.
func newTestDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	mux := http.NewServeMux()
	for _, p := range []string{"/movie/popular", "/movie/top_rated", "/movie/now_playing", "/movie/upcoming", "/search/movie"} {
		mux.HandleFunc(p, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(popularBody))
		})
	}
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return dispatch.New(tmdb.New(ts.URL, "k", ts.Client()), dispatch.WithLogger(zerolog.Nop()))
}

// roundTrip sends msg through h and decodes the reply.
func roundTrip(t *testing.T, h MessageHandler, msg string) map[string]any {
	t.Helper()
	reply := h.HandleMessage(context.Background(), json.RawMessage(msg))
	require.NotNil(t, reply)
	b, err := json.Marshal(reply)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

// toolText extracts the single text item and isError flag of a tools/call reply.
func toolText(t *testing.T, reply map[string]any) (string, bool) {
	t.Helper()
	require.NotContains(t, reply, "error")
	result, ok := reply["result"].(map[string]any)
	require.True(t, ok, "reply %v", reply)
	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	item := content[0].(map[string]any)
	require.Equal(t, "text", item["type"])
	isErr, _ := result["isError"].(bool)
	return item["text"].(string), isErr
}
