package tmdb

import "encoding/json"

// Movie is the summary shape TMDB returns in list endpoints.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
}

// Genre is a single entry of a movie's genre list.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the response of the movie-by-id endpoint.
//
// Encoding a value decoded by Client reproduces the upstream body, including
// fields this type does not model.
type MovieDetails struct {
	Movie
	Genres  []Genre `json:"genres"`
	Runtime int64   `json:"runtime"`
	Budget  int64   `json:"budget"`
	Revenue int64   `json:"revenue"`
	Status  string  `json:"status"`
	Tagline string  `json:"tagline"`

	raw json.RawMessage
}

// PagedResult is the envelope shared by search and the list endpoints.
//
// Like MovieDetails, it encodes back to the exact upstream body when it was
// produced by Client.
type PagedResult struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`

	raw json.RawMessage
}

// Raw returns the upstream body the result was decoded from, if any.
func (p PagedResult) Raw() json.RawMessage { return p.raw }

// MarshalJSON emits the upstream body verbatim when present.
func (p PagedResult) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	type plain PagedResult
	return json.Marshal(plain(p))
}

// Raw returns the upstream body the details were decoded from, if any.
func (d MovieDetails) Raw() json.RawMessage { return d.raw }

// MarshalJSON emits the upstream body verbatim when present.
func (d MovieDetails) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	type plain MovieDetails
	return json.Marshal(plain(d))
}
