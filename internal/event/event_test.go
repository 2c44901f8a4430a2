package event

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "http://gitlab.example.com/hooks/ci?a=1", strings.NewReader("payload"))
	r.Header.Set("X-Gitlab-Event", "Push Hook")
	r.Header.Add("X-Dup", "first")
	r.Header.Add("X-Dup", "second")

	ev := FromRequest(r, []byte("payload"))

	if ev.Path != "/hooks/ci" {
		t.Errorf("Path = %q, want /hooks/ci", ev.Path)
	}
	if want := "POST /hooks/ci?a=1 HTTP/1.1"; ev.RequestLine != want {
		t.Errorf("RequestLine = %q, want %q", ev.RequestLine, want)
	}
	if got := ev.Headers["X-Gitlab-Event"]; got != "Push Hook" {
		t.Errorf("X-Gitlab-Event = %q", got)
	}
	if got := ev.Headers["X-Dup"]; got != "second" {
		t.Errorf("duplicate header collapsed to %q, want last value", got)
	}
	if got := ev.Headers["Host"]; got != "gitlab.example.com" {
		t.Errorf("Host = %q", got)
	}
	if string(ev.Body) != "payload" {
		t.Errorf("Body = %q", ev.Body)
	}
}

func TestProjection(t *testing.T) {
	ev := &Event{
		Path: "/hook",
		Headers: map[string]string{
			"X-Gitlab-Event": "Push Hook",
			"Host":           "gitlab.example.com",
			"Content-Type":   "application/json",
		},
	}
	data := ev.Projection()

	want := map[string]string{
		"path":         "/hook",
		"gitlab_event": "Push Hook",
		"gitlab_host":  "gitlab.example.com",
	}
	if len(data) != len(want) {
		t.Errorf("projection has %d keys, want %d: %v", len(data), len(want), data)
	}
	for k, v := range want {
		if data[k] != v {
			t.Errorf("projection[%q] = %q, want %q", k, data[k], v)
		}
	}
	// Absent header must project to an absent key, not an empty string.
	if _, ok := data["gitlab_token"]; ok {
		t.Error("gitlab_token should be absent when the header is absent")
	}
}
