package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	ViewerID      int64
	Errors        []error
	// Flushes counts deferred batches drained while executing.
	Flushes  int
	Duration time.Duration
}
