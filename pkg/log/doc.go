/*
Package log provides structured logging for hostkeeper using zerolog.

Init configures the package-level Logger once at startup. Components take a
child logger when they are constructed, so Init must run before anything
else is built:

	closer := log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		File:       "/var/log/hostkeeper/hostkeeper.log",
		MaxSizeMB:  100,
		MaxBackups: 7,
		MaxAgeDays: 7,
	})
	defer closer()

Console output is used unless JSONOutput is set. When File is set, a
lumberjack rotator receives the same events as JSON and the returned closer
releases it.

# Context fields

	WithComponent("scheduler")          component=scheduler
	WithServerID(id)                    server_id=...
	WithRun(serverID, runID)            component=server-check server_id=... run_id=...
	WithTask(kind, taskID, serverID)    task_kind=... task_id=... server_id=...

Every line written during one server check carries the same run_id, so a
single run can be followed with

	jq 'select(.run_id == "9f0c...")' hostkeeper.log

Levels are used consistently: debug for per-resource detail, info for
component lifecycle and run outcomes, warn for swallowed failures such as a
proxy that could not be started, error for failed runs and tasks.
*/
package log
