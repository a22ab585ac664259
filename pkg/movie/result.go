package movie

// Outcome classifies how a title lookup ended.
type Outcome string

const (
	// OutcomeMatched means the catalog returned at least one result.
	OutcomeMatched Outcome = "matched"

	// OutcomeNoMatch means the catalog answered successfully with zero results.
	OutcomeNoMatch Outcome = "no_match"

	// OutcomeFailed means the lookup failed and Record is a fallback.
	OutcomeFailed Outcome = "failed"
)

// Result is the tagged outcome of resolving one title.
type Result struct {
	Record  Record
	Outcome Outcome

	// Err is set only when Outcome is OutcomeFailed.
	Err error
}

// Matched wraps a record found in the catalog.
func Matched(r Record) Result {
	return Result{Record: r, Outcome: OutcomeMatched}
}

// NoMatch wraps the bare record for a title the catalog does not know.
func NoMatch(title string) Result {
	return Result{Record: Bare(title), Outcome: OutcomeNoMatch}
}

// Failed wraps a fallback record together with the reason it was needed.
func Failed(fallback Record, err error) Result {
	return Result{Record: fallback, Outcome: OutcomeFailed, Err: err}
}
