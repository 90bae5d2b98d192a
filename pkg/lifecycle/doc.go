// Package lifecycle coordinates the start and stop operations of a resource.
//
// A Service wraps two operations, one that brings a resource up (open a
// listener, connect a database) and one that brings it down, and makes
// repeated, overlapping Start and Stop calls behave as if they were
// serialized and idempotent.
//
// # Usage
//
// Create a service from the resource's operations:
//
//	svc := lifecycle.New(server.Open, server.Close,
//	    lifecycle.WithName("http"),
//	    lifecycle.WithLogger(logger),
//	)
//
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Stop(context.Background())
//
// Start and Stop may be called from any goroutine, any number of times.
// The start operation runs only when the service actually crosses from
// Stopped to Starting, and concurrent callers wait for that crossing
// instead of running it again. The same holds for Stop.
//
// Started and Stopped wait passively for a state without triggering it:
//
//	go func() {
//	    if err := svc.Started(ctx); err == nil {
//	        announceReady()
//	    }
//	}()
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Started, Error
//   - Started -> Stopping
//   - Stopping -> Stopped, Error
//
// Error is terminal. A failed operation is not retried, and every later
// call returns the error the operation failed with. Build a new Service to
// recover.
//
// # Observing
//
// Every transition, including the transient Starting and Stopping states,
// is delivered to observers registered with WithObserver or Subscribe.
//
// # Version
//
// Current version: 0.3.0
// Minimum compatible version: 0.3.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
