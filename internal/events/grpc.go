package events

import (
	"time"

	"google.golang.org/grpc/codes"
)

// GRPCClientStart is emitted before a remote resolver call.
type GRPCClientStart struct {
	Service string
	Method  string
	Target  string
	// Coordinate is the binding the call serves.
	Coordinate string
}

// GRPCClientFinish is emitted after a remote resolver call completes.
type GRPCClientFinish struct {
	Service    string
	Method     string
	Target     string
	Coordinate string
	Code       codes.Code
	Err        error
	Duration   time.Duration
}
