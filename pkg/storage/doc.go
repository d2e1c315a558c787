/*
Package storage persists servers, teams and server inventory in BoltDB.

BoltStore keeps one bucket per record type in <dataDir>/hostkeeper.db:

	servers       Server, keyed by ID
	teams         Team
	applications  Application, filtered by ServerID on read
	databases     Database
	services      Service
	previews      Preview

Records are JSON encoded. Every write is its own bbolt transaction, so
concurrent server checks never observe a half-written record. Two writes
exist only for the server check: UpdateProxyStatus rewrites the proxy
status and nothing else on the server (last writer wins), and
UpdateResourceStatus records the aggregated status of one inventory
resource. DeleteServer also removes the server's inventory.

Lookups of missing records return an error wrapping ErrNotFound.

The database file is locked while open. A second process trying to open it
gives up after one second, which is what the CLI reports when the daemon is
already running.
*/
package storage
