package enrich

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/movie"
)

// Validate checks a request before any lookup is made.
func Validate(movies []movie.Input, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return ErrMissingCredential
	}
	if movies == nil {
		return ErrMissingMovies
	}
	for i, in := range movies {
		if strings.TrimSpace(in.Title) == "" {
			return fmt.Errorf("%w: movies[%d] has an empty title", ErrInvalidRequest, i)
		}
	}
	return nil
}

// DedupInputs keeps the first input for every normalized title, in order.
func DedupInputs(movies []movie.Input) []movie.Input {
	seen := make(map[string]struct{}, len(movies))
	unique := make([]movie.Input, 0, len(movies))
	for _, in := range movies {
		key := movie.NormalizeTitle(in.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, in)
	}
	return unique
}

// Partition splits inputs into consecutive batches of at most size entries.
func Partition(inputs []movie.Input, size int) [][]movie.Input {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]movie.Input, 0, (len(inputs)+size-1)/size)
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		batches = append(batches, inputs[start:end])
	}
	return batches
}

// FinalizeRecords drops records that resolve to the same catalog entry (or,
// without one, the same normalized title), keeping the first. Records still
// lacking an id get "movie-<millis>-<index>", index being the position in
// results.
func FinalizeRecords(results []movie.Result, now time.Time) []movie.Record {
	seen := make(map[string]struct{}, len(results))
	records := make([]movie.Record, 0, len(results))

	for i, r := range results {
		rec := r.Record
		key := dedupKey(rec)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if rec.ID == "" {
			rec.ID = fmt.Sprintf("movie-%d-%d", now.UnixMilli(), i)
		}
		records = append(records, rec)
	}
	return records
}

func dedupKey(rec movie.Record) string {
	if rec.HasCatalogID() {
		return movie.CatalogKey(*rec.CatalogID)
	}
	return "title-" + movie.NormalizeTitle(rec.Title)
}
