package tmdb

import "fmt"

// UpstreamError reports a failed TMDB request: either a non-2xx status or a
// transport failure (Err set, StatusCode zero).
type UpstreamError struct {
	StatusCode int
	StatusText string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("TMDB API error: %v", e.Err)
	}
	return fmt.Sprintf("TMDB API error: %d %s", e.StatusCode, e.StatusText)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// DecodeError reports a 2xx response whose body could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("TMDB API error: invalid response body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
