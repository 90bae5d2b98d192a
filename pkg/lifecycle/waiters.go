package lifecycle

// continuation is a single-use callback registered by a blocked caller. It
// is invoked exactly once, with nil when its condition is reached or with
// the cause of a failure.
type continuation struct {
	id     uint64
	resume func(err error)
}

// waiters holds the pending continuations for the two conditions a caller
// can block on: reaching StateStarted and reaching StateStopped.
// Continuations run in registration order.
//
// It is not safe for concurrent use; Service guards it with its mutex.
type waiters struct {
	nextID  uint64
	started []continuation
	stopped []continuation
}

func (w *waiters) list(target State) *[]continuation {
	switch target {
	case StateStarted:
		return &w.started
	case StateStopped:
		return &w.stopped
	default:
		panic("lifecycle: no wait condition for state " + target.String())
	}
}

// add registers resume for target and returns its id.
func (w *waiters) add(target State, resume func(err error)) uint64 {
	w.nextID++
	l := w.list(target)
	*l = append(*l, continuation{id: w.nextID, resume: resume})
	return w.nextID
}

// remove drops a continuation that has not run yet. It returns false if
// the id is unknown, which means the continuation already ran.
func (w *waiters) remove(target State, id uint64) bool {
	l := w.list(target)
	for i, c := range *l {
		if c.id == id {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return true
		}
	}
	return false
}

// signal runs every continuation registered for target with nil.
// The list is detached first, so continuations that register again land
// in a fresh list and are not run by this call.
func (w *waiters) signal(target State) int {
	return drain(w.list(target), nil)
}

// fail runs every continuation of both conditions with err.
func (w *waiters) fail(err error) int {
	return drain(&w.started, err) + drain(&w.stopped, err)
}

// pending returns the number of continuations waiting for target.
func (w *waiters) pending(target State) int {
	return len(*w.list(target))
}

func drain(l *[]continuation, err error) int {
	batch := *l
	*l = nil
	for _, c := range batch {
		c.resume(err)
	}
	return len(batch)
}
