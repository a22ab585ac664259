package catalog

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/movie"
)

// SearchResult is a single TMDB movie search match.
type SearchResult struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PosterPath  string `json:"poster_path"`
	ReleaseDate string `json:"release_date"`
	GenreIDs    []int  `json:"genre_ids"`
}

// SearchResponse models the TMDB paginated search response.
type SearchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// toResult maps a search response; only the first result is used.
func (c *Client) toResult(title string, payload *SearchResponse) movie.Result {
	if len(payload.Results) == 0 {
		return movie.NoMatch(title)
	}
	return movie.Matched(c.toRecord(title, payload.Results[0]))
}

func (c *Client) toRecord(input string, r SearchResult) movie.Record {
	rec := movie.Bare(input)

	id := r.ID
	rec.ID = movie.CatalogKey(id)
	rec.CatalogID = &id

	if strings.TrimSpace(r.Title) != "" {
		rec.Title = r.Title
	}
	if r.PosterPath != "" {
		poster := c.cfg.ImageBaseURL + r.PosterPath
		rec.PosterURL = &poster
	}
	rec.ReleaseYear = ReleaseYear(r.ReleaseDate)
	if r.GenreIDs != nil {
		rec.Genres = slices.Clone(r.GenreIDs)
	}
	return rec
}

// ReleaseYear extracts the year from a TMDB release date. It accepts full
// YYYY-MM-DD dates and falls back to four leading digits; anything else
// yields nil.
func ReleaseYear(date string) *int {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil
	}

	if t, err := time.Parse(time.DateOnly, date); err == nil {
		year := t.Year()
		return &year
	}

	if len(date) < 4 {
		return nil
	}
	for _, ch := range date[:4] {
		if ch < '0' || ch > '9' {
			return nil
		}
	}
	year, _ := strconv.Atoi(date[:4])
	return &year
}
