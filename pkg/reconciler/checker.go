package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/hostkeeper/pkg/health"
	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/cuemby/hostkeeper/pkg/notify"
	"github.com/cuemby/hostkeeper/pkg/proxy"
	"github.com/cuemby/hostkeeper/pkg/remote"
	"github.com/cuemby/hostkeeper/pkg/status"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/tasks"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/google/uuid"
)

// Deps are the collaborators of a ServerChecker
type Deps struct {
	Store      storage.Store
	Connector  remote.Connector
	Submitter  tasks.Submitter
	Propagator status.Propagator
	Proxies    proxy.Manager
	Notifier   notify.Notifier

	// ProbeTimeout bounds the reachability probes (default 10s)
	ProbeTimeout time.Duration
}

// ServerChecker runs the server check: a single pass that compares a host's
// live containers with its declared state and issues corrective work.
type ServerChecker struct {
	deps Deps
}

// NewServerChecker creates a checker
func NewServerChecker(deps Deps) *ServerChecker {
	if deps.ProbeTimeout <= 0 {
		deps.ProbeTimeout = 10 * time.Second
	}
	return &ServerChecker{deps: deps}
}

// Check runs every stage against server in order and never returns an
// error directly: failures, including panics, become a failed Outcome.
func (c *ServerChecker) Check(ctx context.Context, server *types.Server) (out Outcome) {
	out = Outcome{
		RunID:     uuid.New().String(),
		ServerID:  server.ID,
		StartedAt: time.Now(),
	}
	logger := log.WithRun(server.ID, out.RunID)

	defer func() {
		if r := recover(); r != nil {
			out.Result = ResultFailed
			out.Err = fmt.Errorf("server check panicked: %v", r)
			out.Message = out.Err.Error()
		}
		out.Duration = time.Since(out.StartedAt)

		metrics.ServerChecksTotal.WithLabelValues(string(out.Result)).Inc()
		metrics.ServerCheckDuration.Observe(out.Duration.Seconds())

		event := logger.Info()
		if out.Failed() {
			event = logger.Error().Err(out.Err)
		}
		event.Str("result", string(out.Result)).
			Dur("duration", out.Duration).
			Msg("Server check finished")
	}()

	run := &Run{ID: out.RunID, Server: server, logger: logger}
	out.Result, out.Message, out.Err = c.run(ctx, run)
	if out.Err != nil {
		out.Result = ResultFailed
		out.Message = out.Err.Error()
	}
	return out
}

func (c *ServerChecker) run(ctx context.Context, run *Run) (Result, string, error) {
	server := run.Server

	// Stage 1: reachability gate
	host, ok := c.checkReachable(ctx, run)
	if !ok {
		return ResultNotReachable, msgNotReachable, nil
	}
	defer host.Close()
	run.Host = host

	// Stage 2: inventory snapshot
	if err := c.loadInventory(run); err != nil {
		return "", "", err
	}

	// Stage 3: container enumeration
	if server.IsSwarmWorker() || server.IsBuildServer() {
		run.logger.Debug().Str("role", string(server.Role)).Msg("Role has no managed containers, skipping")
		return ResultCompleted, fmt.Sprintf("Skipped container checks for %s server.", server.Role), nil
	}
	if err := c.enumerate(ctx, run); err != nil {
		return "", "", err
	}
	if run.Snapshot.Empty() {
		return ResultNoContainers, msgNoContainers, nil
	}

	// Stage 4: status propagation
	if err := c.deps.Submitter.Submit(ctx, tasks.New(tasks.KindStorageCheck, server.ID)); err != nil {
		return "", "", fmt.Errorf("failed to submit storage check: %w", err)
	}
	if err := c.deps.Propagator.Propagate(ctx, server, run.Snapshot, run.Replicas); err != nil {
		return "", "", fmt.Errorf("failed to propagate container status: %w", err)
	}

	// Stages 5-7 do not depend on each other; all of them run
	if err := errors.Join(
		c.reconcileSentinel(ctx, run),
		c.reconcileLogDrain(ctx, run),
		c.reconcileProxy(ctx, run),
	); err != nil {
		return "", "", err
	}

	return ResultCompleted, "Server check completed.", nil
}

// checkReachable requires the server to be flagged ready and its Docker
// daemon to answer. The returned host is open only when ok is true.
func (c *ServerChecker) checkReachable(ctx context.Context, run *Run) (remote.Host, bool) {
	server := run.Server
	if !server.IsReady() {
		return nil, false
	}

	host, err := c.deps.Connector.Connect(ctx, server)
	if err != nil {
		run.logger.Debug().Err(err).Msg("Failed to connect to server")
		return nil, false
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.deps.ProbeTimeout)
	defer cancel()

	var checkers []health.Checker
	if tcp, ok := health.TCPCheckerForEndpoint(server.Address); ok {
		checkers = append(checkers, tcp.WithTimeout(c.deps.ProbeTimeout))
	}
	checkers = append(checkers, health.NewPingChecker(host))

	result := health.All(probeCtx, checkers...)
	if !result.Healthy {
		run.logger.Debug().Str("reason", result.Message).Msg("Server did not answer probes")
		host.Close()
		return nil, false
	}
	return host, true
}

func (c *ServerChecker) loadInventory(run *Run) error {
	id := run.Server.ID
	var err error

	if run.Inventory.Applications, err = c.deps.Store.ListApplications(id); err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}
	if run.Inventory.Databases, err = c.deps.Store.ListDatabases(id); err != nil {
		return fmt.Errorf("failed to list databases: %w", err)
	}
	if run.Inventory.Services, err = c.deps.Store.ListServices(id); err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	if run.Inventory.Previews, err = c.deps.Store.ListPreviews(id); err != nil {
		return fmt.Errorf("failed to list previews: %w", err)
	}
	return nil
}

func (c *ServerChecker) enumerate(ctx context.Context, run *Run) error {
	if run.Server.IsSwarm() {
		snapshot, replicas, err := run.Host.ListServices(ctx)
		if err != nil {
			return err
		}
		run.Snapshot, run.Replicas = snapshot, replicas

		if run.Server.LogDrainActive() {
			if run.Infra, err = run.Host.ListContainers(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	snapshot, err := run.Host.ListContainers(ctx)
	if err != nil {
		return err
	}
	run.Snapshot, run.Replicas = snapshot, types.ReplicaCountMap{}
	return nil
}

func (c *ServerChecker) reconcileSentinel(ctx context.Context, run *Run) error {
	if !run.Server.SentinelActive() {
		return nil
	}
	if err := c.deps.Submitter.Submit(ctx, tasks.New(tasks.KindSentinelCheck, run.Server.ID)); err != nil {
		return fmt.Errorf("failed to submit sentinel check: %w", err)
	}
	return nil
}

func (c *ServerChecker) reconcileLogDrain(ctx context.Context, run *Run) error {
	if !run.Server.LogDrainActive() {
		return nil
	}

	record, found := run.Snapshot.First(LogDrainMatcher)
	if !found {
		record, found = run.Infra.First(LogDrainMatcher)
	}
	if found && record.Status() == "running" {
		return nil
	}

	run.logger.Info().Bool("found", found).Str("status", record.Status()).Msg("Log drain not running, installing")
	if err := c.deps.Submitter.Submit(ctx, tasks.New(tasks.KindLogDrainInstall, run.Server.ID)); err != nil {
		return fmt.Errorf("failed to submit log drain install: %w", err)
	}
	return nil
}

func (c *ServerChecker) reconcileProxy(ctx context.Context, run *Run) error {
	server := run.Server
	if !server.ProxySet() || server.Proxy.ForceStop {
		return nil
	}

	record, found := run.Snapshot.First(TopologyOf(server).ProxyMatcher())
	if !found {
		c.startProxy(ctx, run).report(run)
		return nil
	}

	server.Proxy.Status = record.Status()
	if err := c.deps.Store.UpdateProxyStatus(server.ID, server.Proxy.Status); err != nil {
		return fmt.Errorf("failed to record proxy status: %w", err)
	}

	networks := proxy.RequiredNetworks(&run.Inventory)
	if err := c.deps.Proxies.ConnectNetworks(ctx, run.Host, server, networks); err != nil {
		run.logger.Warn().Err(err).Strs("networks", networks).Msg("Failed to connect proxy to networks")
	}
	return nil
}
