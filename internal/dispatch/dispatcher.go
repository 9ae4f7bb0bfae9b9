// Package dispatch routes tool invocations to the TMDB client and wraps the
// outcome in an MCP tool result.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"movies-mcp/internal/catalog"
	"movies-mcp/internal/metrics"
	"movies-mcp/internal/tmdb"
)

// MovieClient is the upstream surface the dispatcher needs. *tmdb.Client
// satisfies it.
type MovieClient interface {
	SearchMovies(ctx context.Context, query string, page int) (*tmdb.PagedResult, error)
	MovieDetails(ctx context.Context, movieID int64) (*tmdb.MovieDetails, error)
	PopularMovies(ctx context.Context, page int) (*tmdb.PagedResult, error)
	TopRatedMovies(ctx context.Context, page int) (*tmdb.PagedResult, error)
	NowPlayingMovies(ctx context.Context, page int) (*tmdb.PagedResult, error)
	UpcomingMovies(ctx context.Context, page int) (*tmdb.PagedResult, error)
}

type route func(ctx context.Context, c MovieClient, a arguments) (any, error)

// routes has exactly one entry per catalog tool.
var routes = map[string]route{
	catalog.SearchMovies: func(ctx context.Context, c MovieClient, a arguments) (any, error) {
		return c.SearchMovies(ctx, a.str("query"), a.page())
	},
	catalog.GetMovieDetails: func(ctx context.Context, c MovieClient, a arguments) (any, error) {
		return c.MovieDetails(ctx, a.integer("movie_id"))
	},
	catalog.GetPopularMovies: func(ctx context.Context, c MovieClient, a arguments) (any, error) {
		return c.PopularMovies(ctx, a.page())
	},
	catalog.GetTopRatedMovies: func(ctx context.Context, c MovieClient, a arguments) (any, error) {
		return c.TopRatedMovies(ctx, a.page())
	},
	catalog.GetNowPlayingMovies: func(ctx context.Context, c MovieClient, a arguments) (any, error) {
		return c.NowPlayingMovies(ctx, a.page())
	},
	catalog.GetUpcomingMovies: func(ctx context.Context, c MovieClient, a arguments) (any, error) {
		return c.UpcomingMovies(ctx, a.page())
	},
}

// Dispatcher validates invocations and forwards them to a MovieClient.
// It holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	client  MovieClient
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l.With().Str("component", "dispatcher").Logger() }
}

// WithMetrics records every call on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New returns a Dispatcher backed by client.
func New(client MovieClient, opts ...Option) *Dispatcher {
	d := &Dispatcher{client: client, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tools lists the tools this dispatcher can serve, in presentation order.
func (d *Dispatcher) Tools() []mcp.Tool { return catalog.Tools() }

// Call runs one invocation and returns the decoded upstream result.
//
// Errors are *InvocationError for bad invocations, or the client's
// *tmdb.UpstreamError / *tmdb.DecodeError.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (res any, err error) {
	start := time.Now()
	defer func() {
		label := name
		if _, ok := routes[name]; !ok {
			label = "unknown"
		}
		d.metrics.ObserveCall(label, time.Since(start), err)
		var ev *zerolog.Event
		if err != nil {
			ev = d.logger.Warn().Err(err)
		} else {
			ev = d.logger.Info()
		}
		ev.Str("tool", name).Dur("took", time.Since(start)).Msg("tool call")
	}()

	if args == nil {
		return nil, ErrMissingArguments
	}
	desc, ok := catalog.Lookup(name)
	if !ok {
		return nil, unknownTool(name)
	}
	bound, err := bind(desc, args)
	if err != nil {
		return nil, err
	}
	return routes[name](ctx, d.client, bound)
}

// Invoke runs Call and wraps the outcome as a tool result. Failures become a
// result with IsError set and a single "Error: <message>" text item; Invoke
// never fails itself.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	res, err := d.Call(ctx, name, args)
	if err != nil {
		return errorResult(err)
	}
	text, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(string(text))
}

// ToolHandler adapts Invoke to mcp-go's handler signature.
func (d *Dispatcher) ToolHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return d.Invoke(ctx, req.Params.Name, req.GetArguments()), nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("Error: " + err.Error())
}
