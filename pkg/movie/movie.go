// Package movie defines the records exchanged between the importer, the
// enrichment pipeline and the tier-assignment UI.
package movie

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultTier is the tier every freshly enriched record starts in.
const DefaultTier = "uncategorized"

// Input is a single watched movie as handed over by the importer.
type Input struct {
	// Title is the free-text title from the export. Required, non-empty after trim.
	Title string `json:"title"`

	// WatchedDate is the diary date, when the export carries one.
	WatchedDate *string `json:"watchedDate,omitempty"`
}

// Record is the enriched representation of a movie.
type Record struct {
	// ID is "catalog-<id>" for a match, "fallback-..." for a failed lookup,
	// or "movie-<millis>-<index>" assigned by the orchestrator.
	ID string `json:"id"`

	Title string `json:"title"`

	// PosterURL is the full image URL, nil when the catalog has no poster.
	PosterURL *string `json:"posterUrl"`

	// CatalogID is the TMDB movie id, nil when nothing matched.
	CatalogID *int64 `json:"catalogId"`

	// ReleaseYear is derived from the catalog release date.
	ReleaseYear *int `json:"releaseYear"`

	Genres []int `json:"genres"`

	CurrentTier    string `json:"currentTier"`
	PositionInTier int    `json:"positionInTier"`
}

// NormalizeTitle returns the cache and deduplication key for a title.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// CatalogKey returns the record id used for a catalog match.
func CatalogKey(catalogID int64) string {
	return fmt.Sprintf("catalog-%d", catalogID)
}

// Bare returns a record carrying only the title and default tier fields.
// It is the shape used for "no match" and fallback records.
func Bare(title string) Record {
	return Record{
		Title:       title,
		Genres:      []int{},
		CurrentTier: DefaultTier,
	}
}

// HasCatalogID reports whether the record was matched against the catalog.
func (r Record) HasCatalogID() bool {
	return r.CatalogID != nil
}

// Clone returns a deep copy of the record. Cached records are handed out as
// clones so callers cannot change the cached value.
func (r Record) Clone() Record {
	out := r
	out.PosterURL = clonePtr(r.PosterURL)
	out.CatalogID = clonePtr(r.CatalogID)
	out.ReleaseYear = clonePtr(r.ReleaseYear)
	out.Genres = slices.Clone(r.Genres)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
