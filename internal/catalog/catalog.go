// Package catalog declares the movie tools exposed over MCP.
package catalog

import "github.com/mark3labs/mcp-go/mcp"

// Tool names.
const (
	SearchMovies        = "search_movies"
	GetMovieDetails     = "get_movie_details"
	GetPopularMovies    = "get_popular_movies"
	GetTopRatedMovies   = "get_top_rated_movies"
	GetNowPlayingMovies = "get_now_playing_movies"
	GetUpcomingMovies   = "get_upcoming_movies"
)

// Declared parameter types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
)

// Param describes one input parameter of a tool.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	// Default is substituted when an optional parameter is omitted. Nil means
	// no default.
	Default any
}

// Descriptor is a tool name, its description and its ordered parameters.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

var pageParam = Param{
	Name:        "page",
	Type:        TypeInteger,
	Description: "Page number for pagination (default: 1)",
	Default:     1,
}

var descriptors = []Descriptor{
	{
		Name:        SearchMovies,
		Description: "Search for movies by title or keywords",
		Params: []Param{
			{Name: "query", Type: TypeString, Description: "Search query (movie title or keywords)", Required: true},
			pageParam,
		},
	},
	{
		Name:        GetMovieDetails,
		Description: "Get detailed information about a specific movie by ID",
		Params: []Param{
			{Name: "movie_id", Type: TypeInteger, Description: "TMDB movie ID", Required: true},
		},
	},
	{
		Name:        GetPopularMovies,
		Description: "Get a list of popular movies",
		Params:      []Param{pageParam},
	},
	{
		Name:        GetTopRatedMovies,
		Description: "Get a list of top rated movies",
		Params:      []Param{pageParam},
	},
	{
		Name:        GetNowPlayingMovies,
		Description: "Get a list of movies currently in theaters",
		Params:      []Param{pageParam},
	},
	{
		Name:        GetUpcomingMovies,
		Description: "Get a list of upcoming movies",
		Params:      []Param{pageParam},
	},
}

// Descriptors returns every tool in presentation order. The returned slice
// is a copy.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.clone()
	}
	return out
}

// Lookup returns the descriptor for name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d.clone(), true
		}
	}
	return Descriptor{}, false
}

// Tools returns the catalog as mcp-go tool definitions, in presentation order.
func Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.Tool())
	}
	return out
}

// Tool converts d into its mcp-go form with a JSON-schema input object.
func (d Descriptor) Tool() mcp.Tool {
	props := make(map[string]any, len(d.Params))
	var required []string
	for _, p := range d.Params {
		schema := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			schema["default"] = p.Default
		}
		if p.Type == TypeInteger {
			schema["minimum"] = 1
		}
		props[p.Name] = schema
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

func (d Descriptor) clone() Descriptor {
	d.Params = append([]Param(nil), d.Params...)
	return d
}
