// Package dispatch bridges the multi-goroutine HTTP acceptor and the single
// worker goroutine that evaluates rules and launches actions. All
// communication crosses one thread-safe hand-off: the unbounded delivery
// queue consumed by the worker.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gyaneshwarpardhi/hookrunner/internal/action"
	"github.com/gyaneshwarpardhi/hookrunner/internal/event"
	"github.com/gyaneshwarpardhi/hookrunner/internal/rules"
)

// Runner executes one matched action. Satisfied by *action.Runner.
type Runner interface {
	Execute(ev *event.Event, command string) (*action.Result, error)
}

// State is the lifecycle phase of the dispatch worker.
type State int32

const (
	StateIdle State = iota // worker not started yet
	StateBooting
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBooting:
		return "booting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Bridge owns the dispatch worker goroutine. Start and Stop are called from
// the serving goroutine; Enqueue is called from acceptor goroutines. The
// worker allocates the queue itself during boot, so acceptors must treat a
// false Enqueue as a dropped hand-off until the worker has published it.
type Bridge struct {
	log    *slog.Logger
	runner Runner
	rules  atomic.Pointer[[]*rules.Rule]
	state  atomic.Int32

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	ready chan struct{} // closed once queue is published
	queue *Queue[*event.Event]
}

// New creates a Bridge with the initial rule set. The worker does not run
// until Start.
func New(log *slog.Logger, runner Runner, ruleSet []*rules.Rule) *Bridge {
	b := &Bridge{
		log:    log,
		runner: runner,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	b.rules.Store(&ruleSet)
	return b
}

// Start launches the worker goroutine. Calling Start twice is a no-op.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.log.Debug("starting dispatch worker")
	go b.run(ctx)
}

// Stop cancels the worker and blocks until it has fully exited. An in-flight
// delivery, including any action subprocess it already spawned, runs to
// completion first; only the queue wait is interrupted. Stop before Start or
// a second Stop is a no-op.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.started || b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()

	b.log.Debug("stopping dispatch worker")
	b.cancel()
	<-b.done
	b.log.Debug("dispatch worker stopped")
}

// Enqueue hands a delivery to the worker without blocking. It returns false
// when the worker has not yet published its queue, in which case the
// delivery is dropped by the caller.
func (b *Bridge) Enqueue(ev *event.Event) bool {
	select {
	case <-b.ready:
	default:
		return false
	}
	b.queue.Push(ev)
	return true
}

// Ready is closed once the worker has booted and deliveries can be enqueued.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// State returns the worker's current lifecycle phase.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// QueueLen returns the number of deliveries waiting for the worker, or zero
// before boot.
func (b *Bridge) QueueLen() int {
	select {
	case <-b.ready:
		return b.queue.Len()
	default:
		return 0
	}
}

// SwapRules atomically replaces the rule set (used on hot-reload). Deliveries
// already being processed keep the set they started with.
func (b *Bridge) SwapRules(ruleSet []*rules.Rule) {
	b.rules.Store(&ruleSet)
}

// Rules returns the current rule set.
func (b *Bridge) Rules() []*rules.Rule {
	return *b.rules.Load()
}
