/*
Package scheduler triggers server checks periodically.

Every Interval the scheduler lists the servers in the store and starts a
check for each eligible one on its own goroutine. Servers run in parallel
with each other, bounded by MaxConcurrent. A server is not eligible while a
check for it is still running, or for Backoff after its last check ended.
Each check runs under a RunTimeout deadline and is attempted exactly once;
the next tick is the retry.

Skipped dispatches are counted in hostkeeper_server_checks_skipped_total by
reason: active, backoff or capacity.

RunNow performs an on-demand check for the API and CLI. It honours the
one-active-run rule but not the backoff window.
*/
package scheduler
