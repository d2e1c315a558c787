package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/hostkeeper/pkg/health"
	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/notify"
	"github.com/cuemby/hostkeeper/pkg/remote"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/tasks"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// LogDrainContainer is the log shipping sidecar
	LogDrainContainer = "hostkeeper-log-drain"

	// SentinelContainer is the monitoring agent
	SentinelContainer = "hostkeeper-sentinel"
)

// Images holds the images of the infrastructure containers jobs install
type Images struct {
	LogDrain string
	Sentinel string
}

// Runner executes background tasks against the servers in the store
type Runner struct {
	store     storage.Store
	connector remote.Connector
	notifier  notify.Notifier
	images    Images
	logger    zerolog.Logger
}

// NewRunner creates a task runner
func NewRunner(store storage.Store, connector remote.Connector, notifier notify.Notifier, images Images) *Runner {
	return &Runner{
		store:     store,
		connector: connector,
		notifier:  notifier,
		images:    images,
		logger:    log.WithComponent("jobs"),
	}
}

// Register installs a handler for every task kind on pool
func (r *Runner) Register(pool *tasks.Pool) {
	pool.Register(tasks.KindStorageCheck, r.StorageCheck)
	pool.Register(tasks.KindSentinelCheck, r.SentinelCheck)
	pool.Register(tasks.KindLogDrainInstall, r.LogDrainInstall)
}

// StorageCheck notifies the owning team when Docker disk usage exceeds the
// server's threshold
func (r *Runner) StorageCheck(ctx context.Context, task tasks.Task) error {
	return r.withHost(ctx, task, func(server *types.Server, host remote.Host) error {
		threshold := server.Settings.DiskUsageThresholdBytes
		if threshold <= 0 {
			return nil
		}

		used, err := host.DiskUsage(ctx)
		if err != nil {
			return err
		}
		if used <= threshold {
			return nil
		}

		if server.TeamID == "" {
			r.logger.Warn().
				Str("server_id", server.ID).
				Int64("used_bytes", used).
				Int64("threshold_bytes", threshold).
				Msg("Disk usage above threshold, server has no team to notify")
			return nil
		}
		return r.notifier.Notify(ctx, server.TeamID, notify.DiskUsageHigh(server.ID, used, threshold))
	})
}

// SentinelCheck keeps the monitoring agent running and restarts it when its
// health endpoint stops answering
func (r *Runner) SentinelCheck(ctx context.Context, task tasks.Task) error {
	return r.withHost(ctx, task, func(server *types.Server, host remote.Host) error {
		if !server.SentinelActive() {
			return nil
		}

		if err := r.startOrCreate(ctx, host, remote.ContainerSpec{
			Name:   SentinelContainer,
			Image:  r.images.Sentinel,
			Env:    []string{"SENTINEL_SERVER_ID=" + server.ID},
			Labels: map[string]string{"hostkeeper.managed": "true"},
			Binds:  []string{"/var/run/docker.sock:/var/run/docker.sock:ro"},
		}); err != nil {
			return err
		}

		if server.Settings.SentinelURL == "" {
			return nil
		}
		result := health.NewHTTPChecker(server.Settings.SentinelURL).Check(ctx)
		if result.Healthy {
			return nil
		}

		r.logger.Warn().
			Str("server_id", server.ID).
			Str("reason", result.Message).
			Msg("Sentinel unhealthy, restarting")
		if err := host.RestartContainer(ctx, SentinelContainer); err != nil {
			return err
		}
		if server.TeamID != "" {
			return r.notifier.Notify(ctx, server.TeamID, notify.ContainerRestarted(SentinelContainer, server.ID))
		}
		return nil
	})
}

// LogDrainInstall starts the log-drain container, creating it when missing
func (r *Runner) LogDrainInstall(ctx context.Context, task tasks.Task) error {
	return r.withHost(ctx, task, func(server *types.Server, host remote.Host) error {
		if !server.LogDrainActive() {
			return nil
		}
		return r.startOrCreate(ctx, host, remote.ContainerSpec{
			Name:   LogDrainContainer,
			Image:  r.images.LogDrain,
			Env:    []string{"LOG_DRAIN_SERVER_ID=" + server.ID},
			Labels: map[string]string{"hostkeeper.managed": "true"},
			Binds: []string{
				"/var/run/docker.sock:/var/run/docker.sock:ro",
				"/var/lib/docker/containers:/var/lib/docker/containers:ro",
			},
		})
	})
}

func (r *Runner) startOrCreate(ctx context.Context, host remote.Host, spec remote.ContainerSpec) error {
	err := host.StartContainer(ctx, spec.Name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, remote.ErrContainerNotFound) {
		return err
	}

	if spec.Image == "" {
		return fmt.Errorf("no image configured for %s", spec.Name)
	}
	if err := host.CreateContainer(ctx, spec); err != nil {
		return err
	}
	r.logger.Info().Str("container", spec.Name).Str("image", spec.Image).Msg("Container created")
	return nil
}

func (r *Runner) withHost(ctx context.Context, task tasks.Task, fn func(*types.Server, remote.Host) error) error {
	server, err := r.store.GetServer(task.ServerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Server removed after the task was queued
			return nil
		}
		return fmt.Errorf("failed to load server: %w", err)
	}

	host, err := r.connector.Connect(ctx, server)
	if err != nil {
		return err
	}
	defer host.Close()

	return fn(server, host)
}
