package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/startstop/pkg/log"
)

// ErrOperationPanicked wraps the value recovered from a start or stop
// operation that panicked. The service is parked in StateError with it.
var ErrOperationPanicked = errors.New("lifecycle: operation panicked")

// Operation brings the coordinated resource up or down. It receives the
// context and arguments of the Start or Stop call that triggered it.
type Operation func(ctx context.Context, args ...any) error

// Noop is the default operation. It always succeeds.
func Noop(context.Context, ...any) error { return nil }

// direction describes one half of the state machine so that Start and Stop
// share a single dispatch table.
type direction struct {
	verb     string
	from     State
	via      State
	to       State
	opposite State
}

var (
	up   = &direction{verb: "start", from: StateStopped, via: StateStarting, to: StateStarted, opposite: StateStopping}
	down = &direction{verb: "stop", from: StateStarted, via: StateStopping, to: StateStopped, opposite: StateStarting}
)

// outcome is how a call leaves the dispatch table: finished with err, or
// holding the claim on a crossing whose operation it must now run.
type outcome struct {
	err     error
	claimed bool
}

// call is one Start, Stop, Started or Stopped invocation. dir is nil for
// the passive Started and Stopped waits, which only watch for want.
type call struct {
	ctx  context.Context
	dir  *direction
	want State
	done chan outcome

	// Guarded by Service.mu.
	queued bool
	target State
	id     uint64
}

func newCall(ctx context.Context, dir *direction, want State) *call {
	return &call{ctx: ctx, dir: dir, want: want, done: make(chan outcome, 1)}
}

// Service coordinates the start and stop operations of a single resource.
//
// Any number of goroutines may call Start, Stop, Started and Stopped
// concurrently. Overlapping calls are merged: each supplied operation runs
// at most once per actual crossing of the state machine, and the service
// ends in the state implied by the most recent call.
type Service struct {
	name   string
	start  Operation
	stop   Operation
	logger log.Logger

	// mu guards status and waiters. It is never held while an operation,
	// a blocked caller or an observer is running.
	mu      sync.Mutex
	status  Status
	waiters waiters

	notifier notifier
}

// New creates a Service in StateStopped. A nil operation defaults to Noop.
func New(start, stop Operation, opts ...Option) *Service {
	if start == nil {
		start = Noop
	}
	if stop == nil {
		stop = Noop
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		name:   o.name,
		start:  start,
		stop:   stop,
		logger: o.logger.With(log.String("service", o.name)),
		status: Status{State: StateStopped},
	}
	s.notifier.recovered = s.logObserverPanic
	s.notifier.subscribe(ObserverFunc(s.logTransition))
	for _, obs := range o.observers {
		s.notifier.subscribe(obs)
	}
	return s
}

// Name returns the service name used in logs and events.
func (s *Service) Name() string {
	return s.name
}

// Status returns a snapshot of the current state and stored error.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return s.Status().State
}

// Err returns the error that parked the service in StateError, or nil.
func (s *Service) Err() error {
	return s.Status().Err
}

// Subscribe registers an observer for every subsequent state change and
// returns a function that unregisters it. Observers are called one at a
// time, in transition order, outside of any lock held by the Service.
//
// A panicking observer is logged and skipped; it never affects transitions.
// An observer may read the Service but must not block on Start, Stop,
// Started or Stopped: the goroutine delivering the event may be the one
// that has to finish the crossing those calls wait for.
func (s *Service) Subscribe(observer Observer) (unsubscribe func()) {
	if observer == nil {
		return func() {}
	}
	return s.notifier.subscribe(observer)
}

// Start brings the service to StateStarted.
//
// If the service is already started it returns nil without invoking the
// start operation. If it is starting or stopping, Start waits for that
// crossing to finish and then decides again. If it is stopped, Start runs
// the start operation with ctx and args. Once the service has failed, Start
// returns the stored error unchanged.
//
// ctx is passed to the operation and bounds waiting for another caller's
// crossing. A ctx that is already done never begins a new crossing. The
// coordinator itself never interrupts a running operation.
func (s *Service) Start(ctx context.Context, args ...any) error {
	return s.drive(ctx, up, s.start, args)
}

// Stop brings the service to StateStopped. It mirrors Start.
func (s *Service) Stop(ctx context.Context, args ...any) error {
	return s.drive(ctx, down, s.stop, args)
}

// Started blocks until the service reaches StateStarted. It never starts
// the service itself: a stopped service is waited on until some other call
// starts it. It returns the stored error if the service has failed or fails
// while waiting, and ctx.Err() if ctx is done first.
func (s *Service) Started(ctx context.Context) error {
	return s.dispatch(newCall(ctx, nil, StateStarted)).err
}

// Stopped blocks until the service reaches StateStopped. It mirrors Started.
func (s *Service) Stopped(ctx context.Context) error {
	return s.dispatch(newCall(ctx, nil, StateStopped)).err
}

func (s *Service) drive(ctx context.Context, d *direction, op Operation, args []any) error {
	out := s.dispatch(newCall(ctx, d, d.to))
	if !out.claimed {
		return out.err
	}
	return s.cross(ctx, d, op, args)
}

// dispatch enters c into the dispatch table and blocks until it leaves.
func (s *Service) dispatch(c *call) outcome {
	s.mu.Lock()
	s.dispatchLocked(c)
	queued, target := c.queued, c.target
	s.mu.Unlock()

	if queued {
		verb := "wait"
		if c.dir != nil {
			verb = c.dir.verb
		}
		s.logger.Debug("waiting for state",
			log.String("call", verb),
			log.Stringer("until", target),
		)
	}

	return s.await(c)
}

// dispatchLocked makes one decision for c against the current state. It
// either finishes c, hands it the claim on a new crossing, or parks it on
// the condition that must be reached before deciding again. s.mu must be held.
func (s *Service) dispatchLocked(c *call) {
	cur := s.status

	if cur.State == StateError {
		c.done <- outcome{err: cur.Err}
		return
	}

	d := c.dir
	if d == nil {
		if cur.State == c.want {
			c.done <- outcome{}
			return
		}
		s.parkLocked(c, c.want)
		return
	}

	switch cur.State {
	case d.to:
		c.done <- outcome{}
	case d.via:
		s.parkLocked(c, d.to)
	case d.opposite:
		s.parkLocked(c, d.from)
	case d.from:
		if err := c.ctx.Err(); err != nil {
			c.done <- outcome{err: err}
			return
		}
		s.transitionLocked(Status{State: d.via}, d.verb+" requested")
		c.done <- outcome{claimed: true}
	default:
		panic("lifecycle: unknown state " + cur.State.String())
	}
}

// parkLocked registers c to be dispatched again once target is reached.
// Passive waits finish instead of being dispatched again. s.mu must be held.
func (s *Service) parkLocked(c *call, target State) {
	c.queued = true
	c.target = target
	c.id = s.waiters.add(target, func(err error) {
		c.queued = false
		if err != nil {
			c.done <- outcome{err: err}
			return
		}
		if c.dir == nil {
			c.done <- outcome{}
			return
		}
		s.dispatchLocked(c)
	})
}

// await blocks until c leaves the dispatch table or its context is done.
// A call that left the table concurrently with cancellation keeps its
// outcome, including a claimed crossing, which must still be run.
func (s *Service) await(c *call) outcome {
	select {
	case out := <-c.done:
		return out
	case <-c.ctx.Done():
	}

	s.mu.Lock()
	if c.queued && s.waiters.remove(c.target, c.id) {
		c.queued = false
		s.mu.Unlock()
		return outcome{err: c.ctx.Err()}
	}
	s.mu.Unlock()

	return <-c.done
}

// cross runs op for a crossing the caller has claimed and records the outcome.
func (s *Service) cross(ctx context.Context, d *direction, op Operation, args []any) error {
	s.notifier.flush()

	began := time.Now()
	err := invoke(ctx, op, args)
	elapsed := time.Since(began)

	next := Status{State: d.to}
	reason := d.verb + " completed"
	if err != nil {
		next = Status{State: StateError, Err: err}
		reason = d.verb + " failed"
	}

	s.mu.Lock()
	s.transitionLocked(next, reason)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error(d.verb+" operation failed",
			log.Duration("duration", elapsed),
			log.Err(err),
		)
	}
	s.notifier.flush()

	return err
}

// transitionLocked moves to next, queues the change for observers and then
// resumes the continuations the new state releases. Resumed start and stop
// calls are dispatched again in registration order and may claim the next
// crossing before this returns. s.mu must be held.
func (s *Service) transitionLocked(next Status, reason string) {
	prev := s.status
	if !ValidTransition(prev.State, next.State) {
		panic(fmt.Sprintf("lifecycle: invalid transition %s -> %s", prev.State, next.State))
	}

	s.status = next
	s.notifier.publish(StateChangeEvent{
		Service:  s.name,
		Previous: prev,
		Current:  next,
		Reason:   reason,
		At:       time.Now(),
	})

	switch next.State {
	case StateStarted, StateStopped:
		s.waiters.signal(next.State)
	case StateError:
		s.waiters.fail(next.Err)
	}
}

// logTransition is the first observer of every Service.
func (s *Service) logTransition(event StateChangeEvent) {
	s.logger.Info("state transition",
		log.Stringer("from", event.Previous.State),
		log.Stringer("to", event.Current.State),
		log.String("reason", event.Reason),
	)
}

func (s *Service) logObserverPanic(event StateChangeEvent, r any) {
	s.logger.Error("observer panicked",
		log.Stringer("to", event.Current.State),
		log.Any("panic", r),
	)
}

// invoke runs op, converting a panic into an error.
func invoke(ctx context.Context, op Operation, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()
	return op(ctx, args...)
}
