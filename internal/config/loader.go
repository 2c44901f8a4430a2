package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/hookrunner/internal/metrics"
	"github.com/gyaneshwarpardhi/hookrunner/internal/rules"
)

// Loader reads the YAML rule file and watches it for changes. Loading skips
// malformed rules; a load that leaves zero rules fails, and on reload the
// previous rule set is kept.
type Loader struct {
	path     string
	log      *slog.Logger
	mu       sync.RWMutex
	current  []*rules.Rule
	onChange []func([]*rules.Rule)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string, log *slog.Logger) (*Loader, error) {
	l := &Loader{path: path, log: log}
	loaded, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = loaded
	return l, nil
}

// Rules returns the current (latest) rule set.
func (l *Loader) Rules() []*rules.Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the rule set reloads.
func (l *Loader) OnChange(fn func([]*rules.Rule)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the rule file on
// changes. Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rule watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("rule watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.log.Warn("hot-reload skipped, keeping previous rules", "err", err)
					}
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the rule file and notifies the
// registered callbacks on success.
func (l *Loader) Reload() ([]*rules.Rule, error) {
	loaded, err := l.load()
	if err != nil {
		metrics.RuleReloads.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.RuleReloads.WithLabelValues("success").Inc()

	l.mu.Lock()
	l.current = loaded
	callbacks := make([]func([]*rules.Rule), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn(loaded)
	}
	l.log.Info("rules loaded", "path", l.path, "count", len(loaded))
	return loaded, nil
}

func (l *Loader) load() ([]*rules.Rule, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", l.path, err)
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", l.path, err)
	}
	loaded, err := rules.Load(file.Rules, l.log)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", l.path, err)
	}
	return loaded, nil
}
