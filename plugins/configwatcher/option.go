package configwatcher

import "github.com/bft-labs/startstop/pkg/log"

// Option configures optional behavior of a Plugin.
type Option func(*Plugin)

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
//
// Usage:
//
//	watcher, err := configwatcher.New(configwatcher.Config{
//	    Path:     cfgFile,
//	    OnChange: reload,
//	}, configwatcher.WithLogger(logger))
func WithLogger(logger log.Logger) Option {
	return func(p *Plugin) {
		if logger != nil {
			p.logger = logger
		}
	}
}
