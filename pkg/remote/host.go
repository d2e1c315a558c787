package remote

import (
	"context"
	"errors"

	"github.com/cuemby/hostkeeper/pkg/types"
)

// ErrContainerNotFound is returned when a named container does not exist on the host
var ErrContainerNotFound = errors.New("container not found")

// ContainerSpec describes an infrastructure container to create
type ContainerSpec struct {
	Name    string // without leading slash
	Image   string
	Cmd     []string
	Env     []string
	Labels  map[string]string
	Ports   []int // published on the same host port, tcp
	Binds   []string
	Network string
}

// Host is the set of remote queries and operations the daemon performs
// against one managed container host. Inspect payloads are returned as
// key-path-addressable records rather than typed structs.
type Host interface {
	Ping(ctx context.Context) error

	// ListContainers returns the inspect payload of every container, running or not
	ListContainers(ctx context.Context) (types.ContainerSnapshot, error)

	// ListServices returns swarm services and their running replica counts
	ListServices(ctx context.Context) (types.ContainerSnapshot, types.ReplicaCountMap, error)

	// PublishedPorts maps published host ports to the container publishing them
	PublishedPorts(ctx context.Context) (map[int]string, error)

	StartContainer(ctx context.Context, name string) error
	RestartContainer(ctx context.Context, name string) error
	// CreateContainer pulls the image, creates and starts the container
	CreateContainer(ctx context.Context, spec ContainerSpec) error
	// CreateService creates a single-replica swarm service from spec
	CreateService(ctx context.Context, spec ContainerSpec) error

	EnsureNetwork(ctx context.Context, name string, overlay bool) error
	// ConnectNetwork attaches a container to a network; already attached is not an error
	ConnectNetwork(ctx context.Context, network, container string) error

	// DiskUsage returns bytes used by images, containers, volumes and build cache
	DiskUsage(ctx context.Context) (int64, error)

	Close() error
}

// Connector opens a Host for a server
type Connector interface {
	Connect(ctx context.Context, server *types.Server) (Host, error)
}
