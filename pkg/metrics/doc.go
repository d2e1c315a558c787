/*
Package metrics exposes Prometheus metrics and the daemon's health state.

All collectors are registered on the default registry at init and served by
Handler on /metrics.

	hostkeeper_servers_total{role}                  registered servers
	hostkeeper_servers_not_ready{role}              servers flagged unreachable or unusable
	hostkeeper_containers{server_id,state}          containers seen by the last propagation
	hostkeeper_server_checks_total{result}          runs by outcome
	hostkeeper_server_check_duration_seconds        run duration
	hostkeeper_server_checks_skipped_total{reason}  active, backoff or capacity
	hostkeeper_proxy_starts_total{result}           automatic proxy starts
	hostkeeper_tasks_submitted_total{kind}
	hostkeeper_tasks_failed_total{kind}
	hostkeeper_tasks_dropped_total{kind,reason}     duplicate or queue_full
	hostkeeper_task_duration_seconds{kind}
	hostkeeper_api_requests_total{route,status}

Health is tracked per component with UpdateComponent. /health reports every
component, /ready only fails when a component named in
SetCriticalComponents is unhealthy, and /live answers as long as the process
serves HTTP.

Collector refreshes the inventory gauges from the store every 15 seconds
and marks the store component unhealthy when listing fails.

Timer measures an operation and records it into a histogram:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ServerCheckDuration)
*/
package metrics
