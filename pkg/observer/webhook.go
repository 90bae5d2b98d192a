package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/bft-labs/startstop/pkg/lifecycle"
	"github.com/bft-labs/startstop/pkg/log"
)

// Webhook defaults.
const (
	DefaultQueueSize      = 64
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
)

// ErrNoURL is returned by NewWebhook when the config has no URL.
var ErrNoURL = errors.New("observer: webhook URL is required")

// WebhookConfig configures a Webhook.
type WebhookConfig struct {
	// URL receives one POST per state change.
	URL string

	// AuthToken is sent as a bearer token when set.
	AuthToken string

	// QueueSize bounds the events waiting for delivery. Events arriving
	// while the queue is full are dropped.
	QueueSize int

	// MaxAttempts is the number of delivery attempts per event.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Webhook is an observer that POSTs each state change as JSON.
//
// OnStateChange only enqueues; Run performs the deliveries, one event at a
// time and in order, so a slow endpoint never holds up the Service.
type Webhook struct {
	cfg    WebhookConfig
	client HTTPClient
	logger log.Logger
	events chan Record

	// Owned by whichever of Run or Drain is delivering.
	backoff  *Backoff
	inflight *Record
}

var _ lifecycle.Observer = (*Webhook)(nil)

// NewWebhook creates a Webhook. A nil client uses http.DefaultClient.
func NewWebhook(cfg WebhookConfig, client HTTPClient, logger log.Logger) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Webhook{
		cfg:    cfg,
		client: client,
		logger: logger,
		events:  make(chan Record, cfg.QueueSize),
		backoff: NewBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
	}, nil
}

// OnStateChange queues the event for delivery.
func (w *Webhook) OnStateChange(e lifecycle.StateChangeEvent) {
	r := NewRecord(e)
	select {
	case w.events <- r:
	default:
		w.logger.Warn("webhook queue full, dropping event",
			log.String("service", r.Service),
			log.Stringer("state", r.State),
		)
	}
}

// Run delivers queued events until ctx is done. An event whose delivery
// is interrupted by ctx is kept for Drain.
func (w *Webhook) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-w.events:
			if !w.deliver(ctx, r) {
				w.inflight = &r
				return ctx.Err()
			}
		}
	}
}

// Drain delivers the event Run was interrupted on, then the events already
// queued, and returns. It must not run concurrently with Run.
func (w *Webhook) Drain(ctx context.Context) {
	if r := w.inflight; r != nil {
		w.inflight = nil
		if !w.deliver(ctx, *r) {
			w.dropped(*r)
			return
		}
	}
	for {
		select {
		case r := <-w.events:
			if !w.deliver(ctx, r) {
				w.dropped(r)
				return
			}
		default:
			return
		}
	}
}

// deliver sends r, retrying with backoff. It reports false if ctx ended
// before r was either delivered or given up on.
func (w *Webhook) deliver(ctx context.Context, r Record) bool {
	defer w.backoff.Reset()

	for attempt := 1; ; attempt++ {
		err := w.Send(ctx, r)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= w.cfg.MaxAttempts {
			w.logger.Error("webhook delivery failed, dropping event",
				log.Stringer("state", r.State),
				log.Int("attempts", attempt),
				log.Err(err),
			)
			return true
		}

		w.logger.Warn("webhook delivery failed, retrying",
			log.Int("attempt", attempt),
			log.Duration("backoff", w.backoff.Current()),
			log.Err(err),
		)
		if w.backoff.Wait(ctx) != nil {
			return false
		}
	}
}

func (w *Webhook) dropped(r Record) {
	w.logger.Warn("webhook drain interrupted, dropping event",
		log.Stringer("state", r.State),
		log.Int("queued", len(w.events)),
	)
}

// Send POSTs a single record.
func (w *Webhook) Send(ctx context.Context, r Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Startstop-Service", r.Service)
	req.Header.Set("X-Startstop-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
	if w.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.AuthToken)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
