package events

import "time"

// LoaderFlush is emitted after an entity loader fetched one batch.
type LoaderFlush struct {
	Kind     string
	IDs      []int64
	Found    int
	Err      error
	Duration time.Duration
}

// ConnectionFetch is emitted after a connection resolver fetched one page.
type ConnectionFetch struct {
	Relation string
	SourceID int64
	Backward bool
	Limit    int
	Rows     int
	Err      error
	Duration time.Duration
}

// MutationApplied is emitted after a mutation changed the datastore.
type MutationApplied struct {
	Name     string
	Kind     string
	ID       int64
	ViewerID int64
}
