// Package configwatcher watches a config file and invokes a callback when
// it changes, so a running service can be restarted with the new settings.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/startstop/pkg/log"
)

var (
	// ErrNoPath is returned by New when Config.Path is empty.
	ErrNoPath = errors.New("configwatcher: path is required")

	// ErrNoCallback is returned by New when Config.OnChange is nil.
	ErrNoCallback = errors.New("configwatcher: OnChange is required")
)

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before
	// calling OnChange. Changes within the delay are coalesced.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnChange is called after the file has been written or replaced.
	// Calls never overlap.
	OnChange func(ctx context.Context) error
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// Plugin watches one config file.
type Plugin struct {
	path          string
	debounceDelay time.Duration
	onChange      func(ctx context.Context) error
	logger        log.Logger

	mu       sync.Mutex
	debounce *time.Timer

	// calls serializes OnChange.
	calls sync.Mutex
	wg    sync.WaitGroup
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config, opts ...Option) (*Plugin, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	if cfg.OnChange == nil {
		return nil, ErrNoCallback
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	p := &Plugin{
		path:          filepath.Clean(cfg.Path),
		debounceDelay: cfg.DebounceDelay,
		onChange:      cfg.OnChange,
		logger:        log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Run watches the file's directory until ctx is done. It waits for a
// pending OnChange call to finish before returning.
//
// The directory is watched rather than the file so that editors that
// replace the file by renaming over it are still noticed.
func (p *Plugin) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	p.logger.Info("watching config file", log.String("path", p.path))
	defer p.stop()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceChange(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}

	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		p.fire(ctx)
	})
}

func (p *Plugin) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	p.calls.Lock()
	defer p.calls.Unlock()

	p.logger.Info("config file changed", log.String("path", p.path))
	if err := p.onChange(ctx); err != nil {
		p.logger.Warn("config change handler failed", log.Err(err))
	}
}

// stop cancels a pending debounce and waits for a running OnChange.
func (p *Plugin) stop() {
	p.mu.Lock()
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.debounce = nil
	p.mu.Unlock()

	p.wg.Wait()
}
