package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookrunner_deliveries_received_total",
		Help: "Total number of webhook POSTs received.",
	})

	DeliveriesEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookrunner_deliveries_enqueued_total",
		Help: "Total number of deliveries handed off to the dispatch worker.",
	})

	DeliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookrunner_deliveries_dropped_total",
		Help: "Total number of deliveries dropped because the worker was not ready.",
	})

	DeliveriesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookrunner_deliveries_processed_total",
		Help: "Total number of deliveries fully evaluated by the dispatch worker.",
	})

	RulesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookrunner_rules_matched_total",
		Help: "Total number of rule matches across all deliveries.",
	})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookrunner_actions_executed_total",
		Help: "Total number of actions launched, labelled by outcome.",
	}, []string{"status"})

	ActionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hookrunner_action_duration_seconds",
		Help:    "Wall-clock runtime of action subprocesses.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hookrunner_queue_depth",
		Help: "Deliveries currently waiting for the dispatch worker.",
	})

	RuleReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookrunner_rule_reloads_total",
		Help: "Total number of rule-file reload attempts, labelled by outcome.",
	}, []string{"status"})
)
