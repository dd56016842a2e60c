package events

import "time"

// HTTPStart is emitted when the GraphQL handler receives a request. The
// context carries the request ID.
type HTTPStart struct {
	Method string
	Path   string
}

// HTTPFinish is emitted after the response is written.
type HTTPFinish struct {
	Method string
	Path   string
	Status int
	// Operations is the number of operations executed, more than one for
	// batched requests and zero for rejected ones.
	Operations int
	Duration   time.Duration
}

// GraphQLStart is emitted before an operation executes.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after an operation executes.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	// Aborted is set when a fatal error dropped the data tree.
	Aborted  bool
	Duration time.Duration
}
