/*
Package reconciler implements the server check, hostkeeper's per-server
reconciliation pass.

A server check inspects the live state of one managed Docker host, compares
it with what the store declares, and issues corrective work when the two
drift apart. It is level-triggered: every run re-derives the state of the
proxy, the log drain and the monitoring agent from what the host reports.
Nothing observed in one run is carried into the next.

# Stages

A run executes its stages strictly in order on the calling goroutine:

	┌──────────────────────┐
	│ 1. Reachability gate │──── not ready / no answer ──▶ not_reachable
	└──────────┬───────────┘
	           ▼
	┌──────────────────────┐
	│ 2. Inventory         │  applications, databases, services, previews
	└──────────┬───────────┘
	           ▼
	┌──────────────────────┐
	│ 3. Enumerate         │──── swarm worker / build ───▶ completed
	│    containers        │──── empty snapshot ─────────▶ no_containers
	└──────────┬───────────┘
	           ▼
	┌──────────────────────┐
	│ 4. Propagate status  │  storage-check task, status aggregation
	└──────────┬───────────┘
	           ▼
	┌─────────────┬──────────────┬──────────┐
	│ 5. Sentinel │ 6. Log drain │ 7. Proxy │  each runs even if another failed
	└─────────────┴──────────────┴──────────┘

The container snapshot fetched in stage 3 is the only view of the host that
stages 4 to 7 read. Swarm managers enumerate services, which also yields the
per-service replica counts handed to the status aggregator. The log drain
runs as a plain container even on swarm managers, so when it is enabled a
manager's plain containers are listed as well and searched by the log-drain
stage only.

# Proxy

The proxy record is located with a matcher chosen by topology:

	Standalone: Name      == "/hostkeeper-proxy"
	Clustered:  Spec.Name == "hostkeeper-proxy_traefik"

When no record matches, the checker asks the proxy manager whether a start
is allowed, starts it without forcing, and tells the owning team that the
proxy was restarted. Any failure in that sequence is logged at warn level,
counted in hostkeeper_proxy_starts_total{result="failed"}, and otherwise
ignored; the next run will try again. This is the only failure a run
swallows.

When a record matches, its State.Status is written to the server's proxy
status (last writer wins) and the proxy is reconnected to the default
network plus every network used by the server's inventory. Reconnect errors
are logged only.

# Outcomes

	completed      all applicable stages ran
	not_reachable  the gate refused the server; nothing else happened
	no_containers  the host reported no containers; nothing else happened
	failed         any other error, or a panic, with Outcome.Err set

Background work (storage check, sentinel check, log-drain install) is handed
to a tasks.Submitter and never awaited. A run makes a single attempt; retry
timing belongs to the scheduler.

# Usage

	checker := reconciler.NewServerChecker(reconciler.Deps{
		Store:      store,
		Connector:  &remote.DockerConnector{},
		Submitter:  pool,
		Propagator: status.NewAggregator(store),
		Proxies:    proxy.NewDockerManager(images),
		Notifier:   notify.NewBrokerNotifier(broker),
	})

	out := checker.Check(ctx, server)
	if out.Failed() {
		log.Logger.Error().Err(out.Err).Msg("server check failed")
	}
*/
package reconciler
