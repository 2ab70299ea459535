package lint

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// RuleLoader holds the linter built from a rules file and rebuilds it when
// the file changes.
type RuleLoader struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	current  *Linter
	onChange []func(*Linter)
}

// NewRuleLoader loads path and compiles its rules. An empty path serves the
// built-in rules and never reloads.
func NewRuleLoader(path string, logger *slog.Logger) (*RuleLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &RuleLoader{path: path, logger: logger}
	linter, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = linter
	return l, nil
}

// Linter returns the latest successfully loaded linter.
func (l *RuleLoader) Linter() *Linter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked after every successful reload.
func (l *RuleLoader) OnChange(fn func(*Linter)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch hot-reloads the rules file in a background goroutine until the
// returned stop function is called. A reload that fails keeps the previous
// rules. The parent directory is watched so editors that replace the file
// by rename are still seen.
func (l *RuleLoader) Watch() (stop func(), err error) {
	if l.path == "" {
		return func() {}, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rules watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("rules watcher add %s: %w", dir, err)
	}
	target := filepath.Clean(l.path)

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Warn("rules reload failed, keeping previous rules", "path", l.path, "error", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("rules watcher error", "path", l.path, "error", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload re-reads the rules file now and notifies subscribers.
func (l *RuleLoader) Reload() (*Linter, error) {
	linter, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = linter
	callbacks := make([]func(*Linter), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	l.logger.Info("lint rules loaded", "path", l.path, "rules", len(linter.rules))
	for _, fn := range callbacks {
		fn(linter)
	}
	return linter, nil
}

func (l *RuleLoader) load() (*Linter, error) {
	var rs *RuleSet
	if l.path != "" {
		var err error
		if rs, err = LoadFile(l.path); err != nil {
			return nil, err
		}
	}
	return NewLinter(rs, l.logger)
}
