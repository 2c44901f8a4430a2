// Package event defines the canonical value for one received webhook
// delivery and its projection used for rule matching.
package event

import (
	"net/http"
	"time"
)

// Event is one webhook delivery, copied off the accepting HTTP goroutine.
// After the hand-off into the dispatch queue it is owned exclusively by the
// dispatch worker.
type Event struct {
	ID          string            // delivery id, for log correlation
	ClientAddr  string            // remote address of the sender
	Path        string            // request path
	RequestLine string            // e.g. "POST /hook HTTP/1.1"
	Headers     map[string]string // canonical header names, last value wins
	Body        []byte            // nil when the request carried no body
	ReceivedAt  time.Time
}

// FromRequest captures an Event from an inbound request. Duplicate header
// names collapse to their last value; the Host header, which net/http
// promotes out of the header map, is folded back in.
func FromRequest(r *http.Request, body []byte) *Event {
	headers := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		headers[name] = values[len(values)-1]
	}
	if r.Host != "" {
		headers["Host"] = r.Host
	}
	return &Event{
		ClientAddr:  r.RemoteAddr,
		Path:        r.URL.Path,
		RequestLine: r.Method + " " + r.URL.RequestURI() + " " + r.Proto,
		Headers:     headers,
		Body:        body,
		ReceivedAt:  time.Now(),
	}
}

// projected maps rule-matching keys to the header they are read from.
var projected = map[string]string{
	"gitlab_token": "X-Gitlab-Token",
	"gitlab_event": "X-Gitlab-Event",
	"gitlab_host":  "Host",
}

// Projection returns the flat map rules are matched against. The path key is
// always present; header-derived keys are absent when the header is absent
// rather than mapped to an empty string.
func (e *Event) Projection() map[string]string {
	data := map[string]string{"path": e.Path}
	for key, header := range projected {
		if value, ok := e.Headers[header]; ok {
			data[key] = value
		}
	}
	return data
}
