package dispatch

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/hookrunner/internal/action"
	"github.com/gyaneshwarpardhi/hookrunner/internal/event"
	"github.com/gyaneshwarpardhi/hookrunner/internal/rules"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records executed commands and can block mid-execution.
type fakeRunner struct {
	mu       sync.Mutex
	executed []string
	failing  map[string]bool
	started  chan string   // receives command when execution begins, if set
	release  chan struct{} // execution blocks until closed, if set
}

func (f *fakeRunner) Execute(ev *event.Event, command string) (*action.Result, error) {
	if f.started != nil {
		f.started <- command
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.executed = append(f.executed, command)
	f.mu.Unlock()
	if f.failing[command] {
		return nil, errSpawn
	}
	return &action.Result{Command: command}, nil
}

var errSpawn = &spawnError{}

type spawnError struct{}

func (*spawnError) Error() string { return "spawn failed" }

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

func mustRules(t *testing.T, specs ...rules.Spec) []*rules.Rule {
	t.Helper()
	loaded, err := rules.Load(specs, discard())
	if err != nil {
		t.Fatalf("rules.Load error: %v", err)
	}
	return loaded
}

func pushEvent(headers map[string]string) *event.Event {
	return &event.Event{
		ID:      "d-1",
		Path:    "/hook",
		Headers: headers,
	}
}

func waitReady(t *testing.T, b *Bridge) {
	t.Helper()
	select {
	case <-b.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not boot")
	}
}

func TestBridge_StopBeforeStartIsNoop(t *testing.T) {
	b := New(discard(), &fakeRunner{}, nil)
	b.Stop()
	b.Stop()
	if b.State() != StateIdle {
		t.Errorf("State = %v, want idle", b.State())
	}
}

func TestBridge_DoubleStopIsNoop(t *testing.T) {
	b := New(discard(), &fakeRunner{}, nil)
	b.Start()
	waitReady(t, b)
	b.Stop()
	b.Stop()
	if b.State() != StateStopped {
		t.Errorf("State = %v, want stopped", b.State())
	}
}

func TestBridge_EnqueueBeforeStartIsDropped(t *testing.T) {
	b := New(discard(), &fakeRunner{}, nil)
	if b.Enqueue(pushEvent(nil)) {
		t.Error("Enqueue before boot should report a failed hand-off")
	}
}

func TestBridge_MatchingRuleRunsAction(t *testing.T) {
	runner := &fakeRunner{started: make(chan string, 8)}
	ruleSet := mustRules(t,
		rules.Spec{Condition: "gitlab_event=Push Hook", Action: "do-push"},
		rules.Spec{Condition: "gitlab_event=Tag Push Hook", Action: "do-tag"},
	)
	b := New(discard(), runner, ruleSet)
	b.Start()
	defer b.Stop()
	waitReady(t, b)

	if !b.Enqueue(pushEvent(map[string]string{"X-Gitlab-Event": "Push Hook"})) {
		t.Fatal("Enqueue failed after boot")
	}

	select {
	case cmd := <-runner.started:
		if cmd != "do-push" {
			t.Errorf("executed %q, want do-push", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("matching action never ran")
	}
}

func TestBridge_ActionFailureDoesNotStopRemainingRules(t *testing.T) {
	runner := &fakeRunner{
		started: make(chan string, 8),
		failing: map[string]bool{"first": true},
	}
	ruleSet := mustRules(t,
		rules.Spec{Condition: "path=/hook", Action: "first"},
		rules.Spec{Condition: "path=/hook", Action: "second"},
	)
	b := New(discard(), runner, ruleSet)
	b.Start()
	defer b.Stop()
	waitReady(t, b)

	b.Enqueue(pushEvent(nil))

	for _, want := range []string{"first", "second"} {
		select {
		case cmd := <-runner.started:
			if cmd != want {
				t.Errorf("executed %q, want %q", cmd, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("action %q never ran", want)
		}
	}
}

func TestBridge_ActionsRunInDeclarationOrder(t *testing.T) {
	runner := &fakeRunner{}
	ruleSet := mustRules(t,
		rules.Spec{Condition: "path=/hook", Action: "a"},
		rules.Spec{Condition: "path~=/h", Action: "b"},
		rules.Spec{Condition: "path!=/other", Action: "c"},
	)
	b := New(discard(), runner, ruleSet)
	b.Start()
	waitReady(t, b)
	b.Enqueue(pushEvent(nil))

	deadline := time.After(2 * time.Second)
	for len(runner.commands()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %v executed", runner.commands())
		case <-time.After(5 * time.Millisecond):
		}
	}
	b.Stop()

	got := runner.commands()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("execution order %v, want %v", got, want)
		}
	}
}

func TestBridge_StopWaitsForInflightAction(t *testing.T) {
	runner := &fakeRunner{
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	ruleSet := mustRules(t, rules.Spec{Condition: "path=/hook", Action: "slow"})
	b := New(discard(), runner, ruleSet)
	b.Start()
	waitReady(t, b)

	b.Enqueue(pushEvent(nil))
	<-runner.started // action is now mid-execution

	stopped := make(chan struct{})
	go func() {
		b.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while an action was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the action completed")
	}
	if got := runner.commands(); len(got) != 1 || got[0] != "slow" {
		t.Errorf("executed %v, want the in-flight action to complete", got)
	}
}

func TestBridge_NoDequeueAfterStop(t *testing.T) {
	runner := &fakeRunner{
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	ruleSet := mustRules(t, rules.Spec{Condition: "path=/hook", Action: "run"})
	b := New(discard(), runner, ruleSet)
	b.Start()
	waitReady(t, b)

	b.Enqueue(pushEvent(nil))
	<-runner.started

	// Queue a second delivery while the first is in flight, then stop.
	b.Enqueue(pushEvent(nil))
	stopped := make(chan struct{})
	go func() {
		b.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	close(runner.release)
	<-stopped

	if got := runner.commands(); len(got) != 1 {
		t.Errorf("executed %d actions, want 1 (no dequeue after stop)", len(got))
	}
	if b.QueueLen() != 1 {
		t.Errorf("QueueLen = %d, want the second delivery left queued", b.QueueLen())
	}
}

func TestBridge_SwapRules(t *testing.T) {
	runner := &fakeRunner{started: make(chan string, 8)}
	b := New(discard(), runner, mustRules(t, rules.Spec{Condition: "path=/hook", Action: "old"}))
	b.Start()
	defer b.Stop()
	waitReady(t, b)

	b.SwapRules(mustRules(t, rules.Spec{Condition: "path=/hook", Action: "new"}))
	b.Enqueue(pushEvent(nil))

	select {
	case cmd := <-runner.started:
		if cmd != "new" {
			t.Errorf("executed %q, want the swapped rule set", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no action ran after swap")
	}
}
