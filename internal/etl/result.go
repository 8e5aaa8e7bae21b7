package etl

import "time"

// Outcome is the tag of a per-record Result.
type Outcome int

const (
	// Unknown is the zero value; a Result that still carries it was never
	// finished and counts as neither indexed nor failed.
	Unknown Outcome = iota
	// Indexed means the record was embedded and upserted.
	Indexed
	// Failed means a step failed; Stage and Err say which and why.
	Failed
)

// String returns "indexed", "failed" or "unknown".
func (o Outcome) String() string {
	switch o {
	case Indexed:
		return "indexed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names the per-record step a failure happened in.
type Stage string

const (
	// StageFlatten covers text and metadata construction.
	StageFlatten Stage = "flatten"
	// StageEmbed covers the embedding call.
	StageEmbed Stage = "embed"
	// StageUpsert covers the index write.
	StageUpsert Stage = "upsert"
)

// Result is the outcome of processing a single record.
type Result struct {
	// Index is the record's position in the fetched batch.
	Index int
	// ID is the identifier the record was (or would have been) indexed under.
	ID string
	// Outcome is Indexed or Failed.
	Outcome Outcome
	// Stage is set when Outcome is Failed.
	Stage Stage
	// Err is set when Outcome is Failed.
	Err error
}

// Summary is the outcome of a full run.
type Summary struct {
	// Processed counts records that were indexed.
	Processed int
	// Errors counts records that failed.
	Errors int
	// Total is the number of fetched records.
	Total int
	// Failures lists every failed record in batch order.
	Failures []Result
	// Started and Finished bound the run.
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}
