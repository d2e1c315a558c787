package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/remote"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// ContainerName is the proxy container on standalone hosts
	ContainerName = "hostkeeper-proxy"

	// ServiceName is the proxy swarm service on swarm managers
	ServiceName = "hostkeeper-proxy_traefik"

	// DefaultNetwork is the network every proxy is attached to
	DefaultNetwork = "hostkeeper"
)

// ErrPortInUse is returned when another container already publishes a proxy port
var ErrPortInUse = errors.New("proxy port already in use")

// Ports are the host ports a proxy publishes
var Ports = []int{80, 443}

// Manager decides whether a proxy may be started and performs the start
type Manager interface {
	// ShouldStart checks the start precondition for server's proxy
	ShouldStart(ctx context.Context, host remote.Host, server *types.Server) (bool, error)

	// Start starts or creates the proxy. force restarts a running proxy.
	Start(ctx context.Context, host remote.Host, server *types.Server, force bool) error

	// ConnectNetworks attaches the proxy to every network in networks
	ConnectNetworks(ctx context.Context, host remote.Host, server *types.Server, networks []string) error
}

// Images maps proxy types to container images
type Images map[types.ProxyType]string

// DockerManager manages proxies through remote.Host
type DockerManager struct {
	images Images
	logger zerolog.Logger
}

// NewDockerManager creates a manager using images for each proxy type
func NewDockerManager(images Images) *DockerManager {
	return &DockerManager{
		images: images,
		logger: log.WithComponent("proxy"),
	}
}

func (m *DockerManager) ShouldStart(ctx context.Context, host remote.Host, server *types.Server) (bool, error) {
	if !server.ProxySet() || server.Proxy.ForceStop || server.IsBuildServer() {
		return false, nil
	}

	published, err := host.PublishedPorts(ctx)
	if err != nil {
		return false, err
	}
	for _, port := range Ports {
		owner, ok := published[port]
		if !ok || owner == "/"+ContainerName {
			continue
		}
		return false, fmt.Errorf("%w: port %d is published by %s", ErrPortInUse, port, owner)
	}
	return true, nil
}

func (m *DockerManager) Start(ctx context.Context, host remote.Host, server *types.Server, force bool) error {
	image, ok := m.images[server.Proxy.Type]
	if !ok || image == "" {
		return fmt.Errorf("no image configured for proxy type %q", server.Proxy.Type)
	}

	if err := host.EnsureNetwork(ctx, DefaultNetwork, server.IsSwarm()); err != nil {
		return err
	}

	spec := remote.ContainerSpec{
		Name:  ContainerName,
		Image: image,
		Cmd:   command(server.Proxy.Type, server.IsSwarm()),
		Labels: map[string]string{
			"hostkeeper.managed": "true",
			"hostkeeper.proxy":   string(server.Proxy.Type),
		},
		Ports:   Ports,
		Binds:   []string{"/var/run/docker.sock:/var/run/docker.sock:ro"},
		Network: DefaultNetwork,
	}

	if server.IsSwarm() {
		spec.Name = ServiceName
		if err := host.CreateService(ctx, spec); err != nil {
			return fmt.Errorf("failed to start proxy: %w", err)
		}
		m.logger.Info().Str("server_id", server.ID).Str("service", ServiceName).Msg("Proxy service created")
		return nil
	}

	start := host.StartContainer
	if force {
		start = host.RestartContainer
	}
	err := start(ctx, ContainerName)
	if err == nil {
		m.logger.Info().Str("server_id", server.ID).Bool("force", force).Msg("Proxy container started")
		return nil
	}
	if !errors.Is(err, remote.ErrContainerNotFound) {
		return fmt.Errorf("failed to start proxy: %w", err)
	}

	if err := host.CreateContainer(ctx, spec); err != nil {
		return fmt.Errorf("failed to start proxy: %w", err)
	}
	m.logger.Info().Str("server_id", server.ID).Str("image", image).Msg("Proxy container created")
	return nil
}

// ConnectNetworks makes sure every network exists. On standalone hosts the
// proxy container is also attached; swarm proxies reach overlay networks
// through the service's own attachment.
func (m *DockerManager) ConnectNetworks(ctx context.Context, host remote.Host, server *types.Server, networks []string) error {
	var errs []error
	for _, network := range networks {
		if err := host.EnsureNetwork(ctx, network, server.IsSwarm()); err != nil {
			errs = append(errs, err)
			continue
		}
		if server.IsSwarm() {
			continue
		}
		if err := host.ConnectNetwork(ctx, network, ContainerName); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequiredNetworks returns the default network followed by every distinct
// network named by inv
func RequiredNetworks(inv *types.Inventory) []string {
	seen := map[string]bool{DefaultNetwork: true}
	networks := []string{DefaultNetwork}
	for _, n := range inv.Networks() {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		networks = append(networks, n)
	}
	return networks
}

func command(t types.ProxyType, swarm bool) []string {
	switch t {
	case types.ProxyTypeTraefik:
		provider := "docker"
		if swarm {
			provider = "swarm"
		}
		return []string{
			"--entrypoints.http.address=:80",
			"--entrypoints.https.address=:443",
			"--providers." + provider + "=true",
			"--providers." + provider + ".exposedbydefault=false",
			"--providers." + provider + ".network=" + DefaultNetwork,
		}
	case types.ProxyTypeCaddy:
		return []string{"caddy", "docker-proxy"}
	default:
		return nil
	}
}
