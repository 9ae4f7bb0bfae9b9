// Package tmdb provides a minimal client for The Movie Database (TMDB) v3 API.
package tmdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the public TMDB v3 endpoint.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Client is a minimal HTTP client for the TMDB movie endpoints.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New returns a new client. If httpClient is nil, http.DefaultClient is used.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, HTTP: httpClient}
}

// SearchMovies searches movies by title or keywords.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*PagedResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	return c.paged(ctx, "/search/movie", q)
}

// MovieDetails fetches a single movie by its TMDB id.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error) {
	body, err := c.get(ctx, "/movie/"+strconv.FormatInt(movieID, 10), nil)
	if err != nil {
		return nil, err
	}
	var d MovieDetails
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, &DecodeError{Err: err}
	}
	d.raw = body
	return &d, nil
}

// PopularMovies lists popular movies.
func (c *Client) PopularMovies(ctx context.Context, page int) (*PagedResult, error) {
	return c.paged(ctx, "/movie/popular", pageQuery(page))
}

// TopRatedMovies lists top rated movies.
func (c *Client) TopRatedMovies(ctx context.Context, page int) (*PagedResult, error) {
	return c.paged(ctx, "/movie/top_rated", pageQuery(page))
}

// NowPlayingMovies lists movies currently in theaters.
func (c *Client) NowPlayingMovies(ctx context.Context, page int) (*PagedResult, error) {
	return c.paged(ctx, "/movie/now_playing", pageQuery(page))
}

// UpcomingMovies lists upcoming releases.
func (c *Client) UpcomingMovies(ctx context.Context, page int) (*PagedResult, error) {
	return c.paged(ctx, "/movie/upcoming", pageQuery(page))
}

func pageQuery(page int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return q
}

func (c *Client) paged(ctx context.Context, path string, q url.Values) (*PagedResult, error) {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	var res PagedResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &DecodeError{Err: err}
	}
	res.raw = body
	return &res, nil
}

// buildURL composes the request URL with the credential and query params.
func (c *Client) buildURL(path string, params url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.APIKey)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// get issues one GET and returns the raw body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL, err := c.buildURL(path, params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: redact(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, StatusText: statusText(resp)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	if !json.Valid(body) {
		return nil, &DecodeError{Err: errors.New("malformed JSON")}
	}
	return bytes.TrimSpace(body), nil
}

// statusText returns the reason phrase of resp, e.g. "Not Found".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// redact drops the request URL from transport errors; it carries the api key.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request failed: %w", uerr.Op, uerr.Err)
	}
	return err
}
