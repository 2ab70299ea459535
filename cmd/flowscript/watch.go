package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/logging"
	"github.com/rendis/flowscript/internal/metrics"
	"github.com/rendis/flowscript/internal/source"
	"github.com/rendis/flowscript/internal/store"
	"github.com/rendis/flowscript/internal/transpile"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 200 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var (
		outDir string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-transpile flows in a directory as they change",
		Long: `Watch a directory and re-transpile each flow file when it is written.
With --out-dir the pseudocode goes to <out-dir>/<flow>.apex; otherwise it is
printed to stdout. --save records every run in history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := args[0]
			if info, err := os.Stat(dir); err != nil {
				return err
			} else if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			fw := &flowWatcher{
				tr:     a.transpiler(),
				outDir: outDir,
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
				logger: a.logger,
			}
			if save || a.cfg.SaveRuns {
				s, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer s.Close()
				fw.store = s
			}

			w, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
			defer w.Close()
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			a.logger.Info("watching", "dir", dir, "out_dir", outDir, "save", fw.store != nil)
			return fw.run(ctx, w)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "write <flow>.apex files here instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "store every run in history")
	return cmd
}

// flowWatcher re-transpiles flow files on change.
type flowWatcher struct {
	tr     *transpile.Transpiler
	store  store.Store
	outDir string
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer

	outMu sync.Mutex // serializes output from concurrent timers
}

func (fw *flowWatcher) run(ctx context.Context, w *fsnotify.Watcher) error {
	defer fw.stopPending()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !source.IsFlowFile(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				fw.schedule(ctx, ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watcher error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func (fw *flowWatcher) schedule(ctx context.Context, path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.pending == nil {
		fw.pending = make(map[string]*time.Timer)
	}
	if t, ok := fw.pending[path]; ok {
		t.Reset(watchDebounce)
		return
	}
	fw.pending[path] = time.AfterFunc(watchDebounce, func() {
		fw.mu.Lock()
		delete(fw.pending, path)
		fw.mu.Unlock()
		if err := fw.process(ctx, path); err != nil {
			fw.logger.Warn("transpile failed", "path", path, "error", err)
		}
	})
}

func (fw *flowWatcher) stopPending() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for path, t := range fw.pending {
		t.Stop()
		delete(fw.pending, path)
	}
}

// process transpiles one file and writes or prints the result.
func (fw *flowWatcher) process(ctx context.Context, path string) error {
	doc, err := source.Load(path)
	if err != nil {
		return err
	}
	ctx = logging.WithFlow(ctx, doc.Flow.Label)
	res, err := fw.tr.Transpile(ctx, doc.Flow)
	metrics.ObserveTranspile(res, err)
	if err != nil {
		return err
	}

	fw.outMu.Lock()
	defer fw.outMu.Unlock()
	printDiagnostics(fw.errOut, res.Diagnostics)
	if fw.outDir != "" {
		target := filepath.Join(fw.outDir, outputName(path))
		if err := os.MkdirAll(fw.outDir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(res.Code), 0o644); err != nil {
			return err
		}
		fw.logger.Info("transpiled", "path", path, "output", target, "diagnostics", len(res.Diagnostics))
	} else {
		fmt.Fprintf(fw.out, "// ==== %s ====\n%s", path, res.Code)
	}

	if fw.store != nil {
		run, err := store.NewRun(doc, res, store.TriggerWatch)
		if err != nil {
			return err
		}
		if err := fw.store.SaveRun(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

// outputName maps a flow file name to its pseudocode file name:
// Order.flow-meta.xml and Order.json both become Order.apex.
func outputName(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range []string{".flow-meta.xml", ".flow", ".json", ".xml"} {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return base + ".apex"
}
