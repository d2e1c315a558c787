package reconciler

import (
	"context"
	"fmt"

	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/cuemby/hostkeeper/pkg/notify"
	"github.com/cuemby/hostkeeper/pkg/proxy"
)

// proxyStartResult holds the outcome of starting a missing proxy. It is the
// only place in a run where a failure is logged and then dropped: the next
// run re-derives the proxy state and tries again.
type proxyStartResult struct {
	skipped bool
	started bool
	err     error
}

func (r proxyStartResult) label() string {
	switch {
	case r.started:
		return "started"
	case r.err != nil:
		return "failed"
	default:
		return "skipped"
	}
}

func (r proxyStartResult) report(run *Run) {
	metrics.ProxyStartsTotal.WithLabelValues(r.label()).Inc()

	switch {
	case r.err != nil:
		run.logger.Warn().Err(r.err).Bool("started", r.started).Msg("Proxy start attempt failed")
	case r.started:
		run.logger.Info().Str("topology", TopologyOf(run.Server).String()).Msg("Proxy started")
	default:
		run.logger.Debug().Msg("Proxy start precondition not met")
	}
}

// startProxy checks the start precondition, starts the proxy and notifies
// the owning team. Nothing it does can fail the run.
func (c *ServerChecker) startProxy(ctx context.Context, run *Run) (res proxyStartResult) {
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("proxy start panicked: %v", r)
		}
	}()

	server := run.Server
	should, err := c.deps.Proxies.ShouldStart(ctx, run.Host, server)
	if err != nil {
		return proxyStartResult{err: err}
	}
	if !should {
		return proxyStartResult{skipped: true}
	}

	if err := c.deps.Proxies.Start(ctx, run.Host, server, false); err != nil {
		return proxyStartResult{err: err}
	}
	res.started = true

	if server.TeamID != "" {
		res.err = c.deps.Notifier.Notify(ctx, server.TeamID, notify.ContainerRestarted(proxy.ContainerName, server.ID))
	}
	return res
}
