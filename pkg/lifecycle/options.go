package lifecycle

import "github.com/bft-labs/startstop/pkg/log"

// Option configures optional behavior of a Service.
type Option func(*options)

// options holds the optional configuration for a Service.
type options struct {
	name      string
	logger    log.Logger
	observers []Observer
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		name:   "service",
		logger: log.NewNoopLogger(),
	}
}

// WithName sets the name used in logs and state change events.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an observer for the whole life of the Service.
// Use Service.Subscribe for observers that need to be removed later.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}
