package dispatch

import (
	"context"

	"github.com/gyaneshwarpardhi/hookrunner/internal/event"
	"github.com/gyaneshwarpardhi/hookrunner/internal/metrics"
	"github.com/gyaneshwarpardhi/hookrunner/internal/rules"
)

// run is the dispatch worker: it boots the queue, then serializes rule
// evaluation and action execution for every delivery until cancelled.
func (b *Bridge) run(ctx context.Context) {
	defer close(b.done)
	defer b.state.Store(int32(StateStopped))
	defer func() {
		// A fault escaping the worker must not crash the process; the
		// bridge still drains and joins cleanly.
		if r := recover(); r != nil {
			b.log.Error("dispatch worker terminated by fault", "panic", r)
		}
	}()

	b.state.Store(int32(StateBooting))
	b.log.Debug("allocating delivery queue")
	b.queue = NewQueue[*event.Event]()
	close(b.ready) // publish: acceptors may enqueue from here on

	b.state.Store(int32(StateRunning))
	for {
		ev, err := b.queue.Pop(ctx)
		if err != nil {
			// Cancelled while waiting; no new deliveries are dequeued.
			b.state.Store(int32(StateDraining))
			return
		}
		b.process(ev)
	}
}

// process matches every rule, in declaration order, against one delivery and
// runs the action of each match to completion before trying the next rule.
// No fault here is fatal: a failing rule is treated as non-matching and a
// failing action leaves the remaining rules unaffected.
func (b *Bridge) process(ev *event.Event) {
	log := b.log.With("delivery", ev.ID, "path", ev.Path, "client", ev.ClientAddr)
	log.Debug("processing delivery")

	data := ev.Projection()
	for i, rule := range b.Rules() {
		if !b.match(rule, data, i) {
			continue
		}
		log.Debug("rule matched", "rule", i+1)
		metrics.RulesMatched.Inc()

		res, err := b.runner.Execute(ev, rule.Action())
		if err != nil {
			log.Error("unable to execute action", "rule", i+1, "err", err)
			metrics.ActionsExecuted.WithLabelValues("spawn_error").Inc()
			continue
		}
		status := "success"
		if res.ExitCode != 0 {
			status = "failure"
		}
		metrics.ActionsExecuted.WithLabelValues(status).Inc()
		metrics.ActionDuration.Observe(res.Duration.Seconds())
	}
	metrics.DeliveriesProcessed.Inc()
}

// match evaluates one rule and converts any fault into a non-match.
func (b *Bridge) match(rule *rules.Rule, data map[string]string, idx int) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("rule evaluation failed", "rule", idx+1, "panic", r)
			matched = false
		}
	}()
	return rule.Matches(data)
}
