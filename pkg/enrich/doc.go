// Package enrich turns a batch of watched-movie titles into deduplicated
// catalog records.
//
// A request is validated, deduplicated by normalized title and split into
// fixed-size batches. Batches run one after another; inside a batch every
// title is resolved in its own goroutine and the batch waits for all of
// them. Results are joined in input order and deduplicated once more by
// catalog id, so two spellings of the same film yield one record.
//
// Example usage:
//
//	enricher := enrich.New(catalogClient, enrich.DefaultConfig())
//	records, err := enricher.Enrich(ctx, inputs, apiKey)
//
// Per-title failures never fail the request: the catalog client returns a
// fallback record instead. Enrich only returns an error for invalid input
// or when ctx is cancelled between batches.
package enrich
