// Package startstop coordinates the start and stop operations of a
// resource so that repeated, overlapping calls behave as if they were
// serialized and idempotent.
//
// Example usage:
//
//	svc := startstop.New(server.Open, server.Close, startstop.WithName("http"))
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Stop(context.Background())
//
// The types here are aliases of package lifecycle, which holds the
// implementation and its documentation.
package startstop

import "github.com/bft-labs/startstop/pkg/lifecycle"

// Service coordinates one resource. See lifecycle.Service.
type Service = lifecycle.Service

// Operation brings the resource up or down.
type Operation = lifecycle.Operation

// State is a lifecycle state.
type State = lifecycle.State

// Status is a state together with the error that caused StateError.
type Status = lifecycle.Status

// StateChangeEvent describes one transition.
type StateChangeEvent = lifecycle.StateChangeEvent

// Observer receives every transition of a Service.
type Observer = lifecycle.Observer

// ObserverFunc adapts a function to Observer.
type ObserverFunc = lifecycle.ObserverFunc

// Option configures a Service.
type Option = lifecycle.Option

// Lifecycle states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateStarted  = lifecycle.StateStarted
	StateStopping = lifecycle.StateStopping
	StateError    = lifecycle.StateError
)

// ErrOperationPanicked wraps the value recovered from a panicking operation.
var ErrOperationPanicked = lifecycle.ErrOperationPanicked

// New creates a Service in StateStopped. A nil operation always succeeds.
func New(start, stop Operation, opts ...Option) *Service {
	return lifecycle.New(start, stop, opts...)
}

// WithName sets the name used in logs and state change events.
var WithName = lifecycle.WithName

// WithLogger sets a custom logger for structured logging.
var WithLogger = lifecycle.WithLogger

// WithObserver registers an observer for the whole life of the Service.
var WithObserver = lifecycle.WithObserver

// Version is the version of the coordinator.
const Version = lifecycle.Version
