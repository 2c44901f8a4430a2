// Package api is the webhook acceptor: it turns inbound POSTs into Event
// values and hands them to the dispatch bridge without blocking. The sender
// is always answered 200 immediately; processing happens behind the queue.
package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/hookrunner/internal/dispatch"
	"github.com/gyaneshwarpardhi/hookrunner/internal/event"
	"github.com/gyaneshwarpardhi/hookrunner/internal/metrics"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	bridge *dispatch.Bridge
	log    *slog.Logger
	mux    *http.ServeMux
}

// New creates the HTTP handler and registers all routes. Webhook deliveries
// may POST to any path; the GET endpoints are operational surfaces.
func New(bridge *dispatch.Bridge, log *slog.Logger) http.Handler {
	h := &Handler{bridge: bridge, log: log, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /", h.hook)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.HandleFunc("GET /rules", h.listRules)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(log, h.mux)
}

// POST <any path> — accept a webhook delivery.
//
// The webhook source is told to ignore response codes and only cares about a
// prompt answer, so this always responds 200: a failed hand-off is logged
// and swallowed, never surfaced to the sender.
func (h *Handler) hook(w http.ResponseWriter, r *http.Request) {
	metrics.DeliveriesReceived.Inc()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error("unable to read request body", "client", r.RemoteAddr, "err", err)
		body = nil
	}
	if len(body) == 0 {
		body = nil
	}

	ev := event.FromRequest(r, body)
	ev.ID = uuid.New().String()

	if h.bridge.Enqueue(ev) {
		metrics.DeliveriesEnqueued.Inc()
		h.log.Debug("delivery enqueued", "delivery", ev.ID, "path", ev.Path, "client", ev.ClientAddr)
	} else {
		metrics.DeliveriesDropped.Inc()
		h.log.Error("dispatch worker not ready, dropping delivery",
			"delivery", ev.ID, "path", ev.Path, "client", ev.ClientAddr)
	}

	w.WriteHeader(http.StatusOK)
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 until the dispatch worker is running.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	state := h.bridge.State()
	depth := h.bridge.QueueLen()
	metrics.QueueDepth.Set(float64(depth))

	status := http.StatusOK
	if state != dispatch.StateRunning {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":      state.String(),
		"queue_depth": depth,
	})
}

// GET /rules — list the loaded rules in rule-file form.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.bridge.Rules()
	out := make([]map[string]any, 0, len(loaded))
	for _, rule := range loaded {
		out = append(out, map[string]any{
			"condition": rule.Describe(),
			"action":    rule.Action(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": out})
}
