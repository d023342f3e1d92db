package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/extensibility"
	"github.com/comalice/hsmx/internal/production"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		mf         machineFlags
		addr       string
		redisAddr  string
		redisPass  string
		redisDB    int
		ttl        time.Duration
		dataDir    string
		tickEvent  string
		tickPeriod time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve <chart.yaml>",
		Short: "Run a machine behind an HTTP API",
		Long: `Starts one machine and exposes it over HTTP:

  POST /events   {"type": "open"}
  GET  /state    snapshot and active states
  GET  /dot      Graphviz source
  GET  /metrics  Prometheus metrics

With --redis or --data-dir the snapshot is saved after every event and the machine
resumes from it on the next start.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFor(cmd)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := production.NewPrometheusObserver(reg)
			if err != nil {
				return err
			}

			m, err := mf.newMachine(args[0], logger,
				core.WithObserver(metrics),
				core.WithObserver(production.NewLogObserver(logger)),
			)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			runnerOpts := []core.RunnerOption{core.WithRunnerLogger(logger)}
			switch {
			case redisAddr != "":
				p := production.NewRedisPersister(redisAddr, redisPass, redisDB, production.WithTTL(ttl))
				defer p.Close()
				runnerOpts = append(runnerOpts, core.WithPersister(p))
			case dataDir != "":
				p, err := production.NewJSONPersister(dataDir)
				if err != nil {
					return err
				}
				runnerOpts = append(runnerOpts, core.WithPersister(p))
			}
			if tickEvent != "" {
				if tickPeriod <= 0 {
					return errors.New("--tick-period must be positive")
				}
				runnerOpts = append(runnerOpts, core.WithEventSource(
					extensibility.NewTimerEventSource(ctx, tickEvent, nil, tickPeriod)))
			}

			runner := core.NewRunner(m, runnerOpts...)
			if err := runner.Start(ctx); err != nil {
				return err
			}
			defer runner.Stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           production.NewHandler(runner, production.WithMetrics(reg), production.WithServerLogger(logger)),
				ReadHeaderTimeout: 5 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				fmt.Fprintf(cmd.OutOrStdout(), "serving machine %q on %s\n", m.ID(), addr)
				serverErrors <- srv.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(shutdown)

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case sig := <-shutdown:
				logger.Info("shutting down", "signal", sig.String())
				sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer scancel()
				if err := srv.Shutdown(sctx); err != nil {
					logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
					return srv.Close()
				}
			}
			return nil
		},
	}

	mf.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Persist snapshots in Redis at this address")
	cmd.Flags().StringVar(&redisPass, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Expire Redis snapshots after this long (0 keeps them)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Persist snapshots as JSON files in this directory")
	cmd.Flags().StringVar(&tickEvent, "tick-event", "", "Send this event periodically")
	cmd.Flags().DurationVar(&tickPeriod, "tick-period", time.Second, "Period of --tick-event")
	return cmd
}
