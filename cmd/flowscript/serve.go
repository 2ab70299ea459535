package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/flowscript/internal/lint"
	"github.com/rendis/flowscript/internal/metrics"
	"github.com/rendis/flowscript/internal/scheduler"
	"github.com/rendis/flowscript/internal/store"
	pkgmcp "github.com/rendis/flowscript/pkg/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		noHistory   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the MCP server on stdin/stdout. Lint rules are hot-reloaded from
rules_path. Configured schedules sweep their directories on cron, and
--metrics-addr exposes Prometheus metrics at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if metricsAddr == "" {
				metricsAddr = a.cfg.MetricsAddr
			}

			rules, err := lint.NewRuleLoader(a.cfg.RulesPath, a.logger)
			if err != nil {
				return err
			}
			stopWatch, err := rules.Watch()
			if err != nil {
				return err
			}
			defer stopWatch()

			var st store.Store
			if !noHistory {
				s, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
			} else if len(a.cfg.Schedules) > 0 {
				return fmt.Errorf("schedules need run history; drop --no-history")
			}

			tr := a.transpiler()
			if len(a.cfg.Schedules) > 0 {
				sched := scheduler.NewScheduler(st, tr, a.logger, 0)
				for _, spec := range a.cfg.Schedules {
					if _, err := sched.AddJob(spec); err != nil {
						return err
					}
				}
				if err := sched.Start(ctx); err != nil {
					return err
				}
				defer sched.Stop()
			}

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           metricsMux(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					a.logger.Info("metrics listening", "addr", metricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server error", "error", err)
						cancel()
					}
				}()
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						a.logger.Error("metrics shutdown error", "error", err)
					}
				}()
			}

			pkgmcp.Version = version
			srv, err := pkgmcp.NewFlowscriptServer(pkgmcp.FlowscriptServerDeps{
				Transpiler: tr,
				Rules:      rules,
				Store:      st,
				SaveRuns:   a.cfg.SaveRuns,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}
			a.logger.Info("mcp server starting", "version", version, "history", st != nil)
			if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("mcp server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "disable run history and the history tool")
	return cmd
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
