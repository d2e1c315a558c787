/*
Package types defines the records hostkeeper stores and the views of remote
hosts it reasons about.

Server, Team and the inventory records (Application, Database, Service,
Preview) are persisted by the storage package as JSON. ServerSettings holds
the readiness flags and per-server features; IsReady reports whether a
server may be contacted at all.

ContainerRecord wraps the decoded inspect payload of one container or swarm
service. Fields are read by dotted path so the same lookups work for both
shapes:

	rec.String("State.Status")  // "running"
	rec.SpecName()              // swarm service name, "" for containers
	rec.Labels()                // container labels, else Spec.Labels

A ContainerSnapshot is everything one run saw on a host. Its order is
whatever the remote returned, so records are located with a Matcher rather
than by position.
*/
package types
