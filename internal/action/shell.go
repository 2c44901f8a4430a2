// Package action runs rule actions as shell commands, feeding them the
// originating webhook delivery through environment variables and stdin.
package action

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/hookrunner/internal/event"
)

// EnvPrefix is prepended to every header-derived environment variable.
const EnvPrefix = "YAGWR_"

var envSep = regexp.MustCompile(`[\s-]`)

// EnvName converts a header name into its environment-variable form:
// whitespace and hyphens become underscores, case is preserved.
func EnvName(header string) string {
	return EnvPrefix + envSep.ReplaceAllString(header, "_")
}

// Env returns the process environment extended with one YAGWR_ variable per
// request header.
func Env(ev *event.Event) []string {
	env := os.Environ()
	for name, value := range ev.Headers {
		env = append(env, EnvName(name)+"="+value)
	}
	return env
}

// Result captures the outcome of one executed action for diagnostics.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes actions through a shell.
type Runner struct {
	shell string
	log   *slog.Logger
}

// NewRunner creates a Runner that spawns commands via /bin/sh -c.
func NewRunner(log *slog.Logger) *Runner {
	return &Runner{shell: "/bin/sh", log: log}
}

// Execute spawns command as a single shell command with the delivery's
// headers in the environment and its body on stdin, and waits for it to
// finish. A started command is always awaited to completion; it is never
// killed from here. A non-zero exit code is logged together with the
// original payload and is not an error. The returned error is non-nil only
// when the process could not be spawned at all.
func (r *Runner) Execute(ev *event.Event, command string) (*Result, error) {
	log := r.log.With("delivery", ev.ID, "command", command)

	cmd := exec.Command(r.shell, "-c", command)
	cmd.Env = Env(ev)
	if ev.Body != nil {
		cmd.Stdin = bytes.NewReader(ev.Body)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("spawning action")
	start := time.Now()
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		// Ran but exited non-zero; handled below.
	default:
		return nil, fmt.Errorf("spawn action: %w", err)
	}

	res := &Result{
		Command:  command,
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   decode(stdout.Bytes()),
		Stderr:   decode(stderr.Bytes()),
		Duration: time.Since(start),
	}

	log = log.With("exit_code", res.ExitCode, "duration", res.Duration)
	if res.Stdout != "" {
		log.Debug("action stdout", "output", res.Stdout)
	}
	if res.Stderr != "" {
		log.Debug("action stderr", "output", res.Stderr)
	}

	if res.ExitCode != 0 {
		log.Error("action exited non-zero", "payload", decode(ev.Body))
	} else {
		log.Debug("action completed")
	}
	return res, nil
}

// decode renders raw process output as UTF-8, dropping invalid bytes.
func decode(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
}
