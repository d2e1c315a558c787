package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/hostkeeper/pkg/api"
	"github.com/cuemby/hostkeeper/pkg/events"
	"github.com/cuemby/hostkeeper/pkg/jobs"
	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/cuemby/hostkeeper/pkg/notify"
	"github.com/cuemby/hostkeeper/pkg/proxy"
	"github.com/cuemby/hostkeeper/pkg/reconciler"
	"github.com/cuemby/hostkeeper/pkg/remote"
	"github.com/cuemby/hostkeeper/pkg/scheduler"
	"github.com/cuemby/hostkeeper/pkg/status"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/tasks"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hostkeeper daemon",
	Long: `Run the daemon: every check interval each server gets one server
check, background tasks run on the worker pool, and the HTTP API serves
health, metrics and on-demand checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		go logEvents(broker)

		pool := tasks.NewPool(tasks.PoolConfig{
			Workers:   cfg.TaskWorkers,
			QueueSize: cfg.TaskQueueSize,
			Timeout:   cfg.TaskTimeout,
			Events:    broker,
		})
		d := newDaemonDeps(store, broker, pool)
		d.runner.Register(pool)
		pool.Start()

		sched := scheduler.NewScheduler(store, d.checker, scheduler.Config{
			Interval:      cfg.CheckInterval,
			RunTimeout:    cfg.RunTimeout,
			Backoff:       cfg.Backoff,
			MaxConcurrent: cfg.MaxConcurrentRuns,
			Events:        broker,
		})

		collector := metrics.NewCollector(store)
		apiServer := api.NewServer(store, sched)

		metrics.SetCriticalComponents(metrics.ComponentStore, metrics.ComponentScheduler)
		collector.Start()
		sched.Start()

		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(cfg.APIAddr); err != nil {
				errCh <- fmt.Errorf("API server error: %w", err)
			}
		}()

		log.Logger.Info().
			Str("data_dir", cfg.DataDir).
			Str("api_addr", cfg.APIAddr).
			Dur("check_interval", cfg.CheckInterval).
			Msg("Hostkeeper is running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		var runErr error
		select {
		case sig := <-sigCh:
			log.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		case runErr = <-errCh:
			log.Logger.Error().Err(runErr).Msg("Shutting down")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Errorf("API shutdown failed", err)
		}
		sched.Stop()
		pool.Stop()
		collector.Stop()

		log.Info("Shutdown complete")
		return runErr
	},
}

func init() {
	runCmd.Flags().String("api-addr", "127.0.0.1:8480", "Address for the HTTP API")
}

// daemonDeps are the pieces shared by the daemon and one-off checks
type daemonDeps struct {
	runner      *jobs.Runner
	checker     *reconciler.ServerChecker
	checkerDeps reconciler.Deps
}

func newDaemonDeps(store storage.Store, broker *events.Broker, submitter tasks.Submitter) daemonDeps {
	connector := &remote.DockerConnector{APIVersion: cfg.Docker.APIVersion}
	notifier := notify.NewBrokerNotifier(broker)

	runner := jobs.NewRunner(store, connector, notifier, jobs.Images{
		LogDrain: cfg.Images.LogDrain,
		Sentinel: cfg.Images.Sentinel,
	})

	deps := reconciler.Deps{
		Store:      store,
		Connector:  connector,
		Submitter:  submitter,
		Propagator: status.NewAggregator(store),
		Proxies: proxy.NewDockerManager(proxy.Images{
			types.ProxyTypeTraefik: cfg.Images.Traefik,
			types.ProxyTypeCaddy:   cfg.Images.Caddy,
		}),
		Notifier: notifier,
	}

	return daemonDeps{runner: runner, checker: reconciler.NewServerChecker(deps), checkerDeps: deps}
}

// logEvents writes every published event to the log
func logEvents(broker *events.Broker) {
	logger := log.WithComponent("events")
	sub := broker.Subscribe()
	for event := range sub {
		logger.Info().
			Str("event", string(event.Type)).
			Str("server_id", event.ServerID).
			Str("team_id", event.TeamID).
			Interface("metadata", event.Metadata).
			Msg(event.Message)
	}
}
