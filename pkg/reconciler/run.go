package reconciler

import (
	"github.com/cuemby/hostkeeper/pkg/remote"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/rs/zerolog"
)

// Run is the state of one server check. It is owned by a single Check
// call and discarded when it returns.
type Run struct {
	ID     string
	Server *types.Server
	Host   remote.Host

	Inventory types.Inventory

	// Snapshot and Replicas are fetched once and read by every later stage
	Snapshot types.ContainerSnapshot
	Replicas types.ReplicaCountMap

	// Infra holds the plain containers of a swarm manager. Only the
	// log-drain stage reads it; the log drain runs outside swarm.
	Infra types.ContainerSnapshot

	logger zerolog.Logger
}
