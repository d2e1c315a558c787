package reconciler

import (
	"github.com/cuemby/hostkeeper/pkg/jobs"
	"github.com/cuemby/hostkeeper/pkg/proxy"
	"github.com/cuemby/hostkeeper/pkg/types"
)

// Topology selects how the proxy is looked up in a snapshot
type Topology int

const (
	// Standalone hosts run the proxy as a plain container
	Standalone Topology = iota
	// Clustered hosts run the proxy as a swarm service
	Clustered
)

// TopologyOf returns the proxy topology of server
func TopologyOf(server *types.Server) Topology {
	if server.IsSwarm() {
		return Clustered
	}
	return Standalone
}

// ProxyMatcher returns the predicate identifying the proxy record
func (t Topology) ProxyMatcher() types.Matcher {
	switch t {
	case Clustered:
		return types.SpecNameEquals(proxy.ServiceName)
	default:
		return types.NameEquals("/" + proxy.ContainerName)
	}
}

func (t Topology) String() string {
	if t == Clustered {
		return "clustered"
	}
	return "standalone"
}

// LogDrainMatcher identifies the log-drain container
var LogDrainMatcher = types.NameEquals("/" + jobs.LogDrainContainer)
