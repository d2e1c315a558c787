/*
Package tasks dispatches fire-and-forget background work for server checks.

A server check never waits for the storage, sentinel or log-drain work it
triggers. It hands a Task to a Submitter and moves on. Pool is the daemon's
Submitter: a fixed number of workers drain a bounded queue, each task runs
under its own timeout, and a second submission for a (kind, server) pair that
is still queued or running is accepted and dropped. Handler errors and panics
are logged and counted in hostkeeper_tasks_failed_total. When
PoolConfig.Events is set they are also published as task.failed events. They
are never reported back to the submitter.

Recorder is an in-memory Submitter used by tests and by "hostkeeper check
--dry-run".

	pool := tasks.NewPool(tasks.PoolConfig{Workers: 4, QueueSize: 256, Timeout: 2 * time.Minute})
	pool.Register(tasks.KindStorageCheck, runner.StorageCheck)
	pool.Start()
	defer pool.Stop()

	err := pool.Submit(ctx, tasks.New(tasks.KindStorageCheck, server.ID))
*/
package tasks
