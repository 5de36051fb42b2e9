package sema

// Cooperative fiber scheduler for the semantic pass (spec.md §4.3, §5). A
// fiber is a goroutine paired with a baton channel: the scheduler only ever
// holds one fiber's baton at a time, so despite being backed by goroutines
// this is single-threaded in the sense spec.md requires — exactly one
// fiber's compiler code is ever running, the rest are parked on a channel
// receive. This mirrors the teacher's own preference (see bundler.go's
// parse-then-link split) for goroutines-plus-channels over a hand-rolled
// state machine wherever Go's scheduler can do the job directly.
//
// Two yield points exist, matching spec.md exactly: defineLoop waits for a
// symbol to finish being defined, sizeLoop waits for a type to finish
// sizing. Both are bounded-retry: a fiber that yields maxYields times
// without the condition becoming true reports a circular-dependency
// diagnostic and terminates without corrupting any other fiber's state.

import "sync"

// maxYields bounds define_loop/size_loop retries before a fiber gives up
// and reports circular dependency (spec.md §4.3 "heuristic").
const maxYields = 4096

type fiberStatus uint8

const (
	fiberYielded fiberStatus = iota
	fiberDone
)

// Fiber is one semantic-compilation task, uniquely associated with one
// top-level def/type-def (or the module's own top-level statement run).
type Fiber struct {
	name    string
	turn    chan struct{}
	status  chan fiberStatus
	stalled bool

	// circular is set by defineLoop/sizeLoop when the retry budget is
	// exhausted; the fiber's caller checks this after the loop returns to
	// decide whether to keep compiling (best-effort) or bail out.
	circular bool
}

// Scheduler runs a FIFO queue of fibers, one baton-turn at a time.
// Stalled fibers (the most recent yield had stall=true) are pushed to the
// back of the queue so runnable work is preferred, per spec.md §5
// "a fiber that yields with stall=true is deprioritized".
type Scheduler struct {
	mu     sync.Mutex
	runQ   []*Fiber // fibers that haven't reported stall on their last yield
	stallQ []*Fiber // deprioritized fibers; only run once runQ drains
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Spawn starts body as a new fiber and enqueues it. body must call
// sched.yield (via defineLoop/sizeLoop) at its cooperation points and
// return when finished; it must not touch any other fiber's state.
func (s *Scheduler) Spawn(name string, body func(f *Fiber)) *Fiber {
	f := &Fiber{
		name:   name,
		turn:   make(chan struct{}),
		status: make(chan fiberStatus),
	}
	go func() {
		<-f.turn
		body(f)
		f.status <- fiberDone
	}()
	s.mu.Lock()
	s.runQ = append(s.runQ, f)
	s.mu.Unlock()
	return f
}

// Run drains the ready queues, giving each fiber its turn until every fiber
// has finished.
func (s *Scheduler) Run() {
	for {
		s.mu.Lock()
		if len(s.runQ) == 0 && len(s.stallQ) > 0 {
			s.runQ, s.stallQ = s.stallQ, nil
		}
		if len(s.runQ) == 0 {
			s.mu.Unlock()
			return
		}
		f := s.runQ[0]
		s.runQ = s.runQ[1:]
		s.mu.Unlock()

		f.turn <- struct{}{}
		switch <-f.status {
		case fiberDone:
			// gone for good
		case fiberYielded:
			s.mu.Lock()
			if f.stalled {
				s.stallQ = append(s.stallQ, f)
			} else {
				s.runQ = append(s.runQ, f)
			}
			s.mu.Unlock()
		}
	}
}

// yield parks the current fiber and hands the baton back to the scheduler.
func (f *Fiber) yield(stall bool) {
	f.stalled = stall
	f.status <- fiberYielded
	<-f.turn
}

// defineLoop blocks the calling fiber until ready() reports true, yielding
// cooperatively between attempts (spec.md §4.3 define_loop). It returns
// false if the retry budget was exhausted (f.circular is also set).
func (f *Fiber) defineLoop(ready func() bool) bool {
	for i := 0; i < maxYields; i++ {
		if ready() {
			return true
		}
		f.yield(true)
	}
	f.circular = true
	return false
}

// sizeLoop is defineLoop's counterpart for type_table.set_size (spec.md
// §4.3 size_loop): it retries setSize until it reports the type is fully
// sized, or the retry budget runs out.
func (f *Fiber) sizeLoop(setSize func() bool) bool {
	for i := 0; i < maxYields; i++ {
		if setSize() {
			return true
		}
		f.yield(true)
	}
	f.circular = true
	return false
}
