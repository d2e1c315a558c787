package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cuemby/hostkeeper/pkg/types"
	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"
)

// DockerConnector opens Docker API clients for servers
type DockerConnector struct {
	// APIVersion pins the API version; empty negotiates with the daemon
	APIVersion string
}

// Connect creates a client for server.Address. No request is made until the first call.
func (c *DockerConnector) Connect(ctx context.Context, server *types.Server) (Host, error) {
	if server.Address == "" {
		return nil, fmt.Errorf("server %s has no docker address", server.ID)
	}
	if strings.HasPrefix(server.Address, "ssh://") {
		return nil, fmt.Errorf("server %s: ssh endpoints are not supported", server.ID)
	}

	opts := []client.Opt{client.WithHost(server.Address)}
	if c.APIVersion != "" {
		opts = append(opts, client.WithVersion(c.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client for %s: %w", server.Address, err)
	}
	return &DockerHost{cli: cli}, nil
}

// DockerHost implements Host over the Docker Engine API
type DockerHost struct {
	cli *client.Client
}

// Close releases the client's transport
func (h *DockerHost) Close() error {
	return h.cli.Close()
}

func (h *DockerHost) Ping(ctx context.Context) error {
	if _, err := h.cli.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping docker daemon: %w", err)
	}
	return nil
}

func (h *DockerHost) ListContainers(ctx context.Context) (types.ContainerSnapshot, error) {
	list, err := h.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	snapshot := make(types.ContainerSnapshot, 0, len(list))
	for _, c := range list {
		inspect, err := h.cli.ContainerInspect(ctx, c.ID)
		if err != nil {
			if errdefs.IsNotFound(err) {
				continue // removed between list and inspect
			}
			return nil, fmt.Errorf("failed to inspect container %s: %w", c.ID, err)
		}

		record, err := toRecord(inspect)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, record)
	}
	return snapshot, nil
}

func (h *DockerHost) ListServices(ctx context.Context) (types.ContainerSnapshot, types.ReplicaCountMap, error) {
	services, err := h.cli.ServiceList(ctx, dockertypes.ServiceListOptions{Status: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list services: %w", err)
	}

	snapshot := make(types.ContainerSnapshot, 0, len(services))
	replicas := make(types.ReplicaCountMap, len(services))
	for _, svc := range services {
		running := 0
		if svc.ServiceStatus != nil {
			running = int(svc.ServiceStatus.RunningTasks)
		}
		replicas[svc.Spec.Name] = running

		fields, err := toFields(svc)
		if err != nil {
			return nil, nil, err
		}
		// Services carry no container state; derive one from running tasks
		status := "exited"
		if running > 0 {
			status = "running"
		}
		fields["State"] = map[string]any{"Status": status}
		snapshot = append(snapshot, types.NewContainerRecord(fields))
	}
	return snapshot, replicas, nil
}

func (h *DockerHost) PublishedPorts(ctx context.Context) (map[int]string, error) {
	list, err := h.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	ports := make(map[int]string)
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0]
		}
		for _, p := range c.Ports {
			if p.PublicPort > 0 {
				ports[int(p.PublicPort)] = name
			}
		}
	}
	return ports, nil
}

func (h *DockerHost) StartContainer(ctx context.Context, name string) error {
	if err := h.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%s: %w", name, ErrContainerNotFound)
		}
		return fmt.Errorf("failed to start container %s: %w", name, err)
	}
	return nil
}

func (h *DockerHost) RestartContainer(ctx context.Context, name string) error {
	if err := h.cli.ContainerRestart(ctx, name, container.StopOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%s: %w", name, ErrContainerNotFound)
		}
		return fmt.Errorf("failed to restart container %s: %w", name, err)
	}
	return nil
}

func (h *DockerHost) CreateContainer(ctx context.Context, spec ContainerSpec) error {
	reader, err := h.cli.ImagePull(ctx, spec.Image, dockertypes.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", spec.Image, err)
	}
	defer reader.Close()
	// Pull errors arrive in the progress stream, not as a response status
	if err := jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", spec.Image, err)
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		port := nat.Port(fmt.Sprintf("%d/tcp", p))
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostPort: strconv.Itoa(p)}}
	}

	hostConfig := &container.HostConfig{
		PortBindings:  bindings,
		Binds:         spec.Binds,
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}
	if spec.Network != "" {
		hostConfig.NetworkMode = container.NetworkMode(spec.Network)
	}

	resp, err := h.cli.ContainerCreate(ctx, &container.Config{
		Image:        spec.Image,
		Cmd:          spec.Cmd,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: exposed,
	}, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}

	if err := h.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", spec.Name, err)
	}
	return nil
}

func (h *DockerHost) CreateService(ctx context.Context, spec ContainerSpec) error {
	replicas := uint64(1)

	var mounts []mount.Mount
	for _, b := range spec.Binds {
		parts := strings.SplitN(b, ":", 3)
		if len(parts) < 2 {
			return fmt.Errorf("invalid bind %q", b)
		}
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   parts[0],
			Target:   parts[1],
			ReadOnly: len(parts) == 3 && parts[2] == "ro",
		})
	}

	var ports []swarm.PortConfig
	for _, p := range spec.Ports {
		ports = append(ports, swarm.PortConfig{
			Protocol:      swarm.PortConfigProtocolTCP,
			TargetPort:    uint32(p),
			PublishedPort: uint32(p),
			PublishMode:   swarm.PortConfigPublishModeHost,
		})
	}

	serviceSpec := swarm.ServiceSpec{
		Annotations: swarm.Annotations{Name: spec.Name, Labels: spec.Labels},
		TaskTemplate: swarm.TaskSpec{
			ContainerSpec: &swarm.ContainerSpec{
				Image:  spec.Image,
				Args:   spec.Cmd,
				Env:    spec.Env,
				Labels: spec.Labels,
				Mounts: mounts,
			},
		},
		Mode:         swarm.ServiceMode{Replicated: &swarm.ReplicatedService{Replicas: &replicas}},
		EndpointSpec: &swarm.EndpointSpec{Ports: ports},
	}
	if spec.Network != "" {
		serviceSpec.TaskTemplate.Networks = []swarm.NetworkAttachmentConfig{{Target: spec.Network}}
	}

	if _, err := h.cli.ServiceCreate(ctx, serviceSpec, dockertypes.ServiceCreateOptions{}); err != nil {
		return fmt.Errorf("failed to create service %s: %w", spec.Name, err)
	}
	return nil
}

func (h *DockerHost) EnsureNetwork(ctx context.Context, name string, overlay bool) error {
	_, err := h.cli.NetworkInspect(ctx, name, dockertypes.NetworkInspectOptions{})
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to inspect network %s: %w", name, err)
	}

	driver := "bridge"
	if overlay {
		driver = "overlay"
	}
	if _, err := h.cli.NetworkCreate(ctx, name, dockertypes.NetworkCreate{Driver: driver, Attachable: true}); err != nil {
		return fmt.Errorf("failed to create network %s: %w", name, err)
	}
	return nil
}

func (h *DockerHost) ConnectNetwork(ctx context.Context, network, containerName string) error {
	if err := h.cli.NetworkConnect(ctx, network, containerName, nil); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to connect %s to network %s: %w", containerName, network, err)
	}
	return nil
}

func (h *DockerHost) DiskUsage(ctx context.Context) (int64, error) {
	du, err := h.cli.DiskUsage(ctx, dockertypes.DiskUsageOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage: %w", err)
	}

	total := du.LayersSize
	for _, c := range du.Containers {
		total += c.SizeRw
	}
	for _, v := range du.Volumes {
		if v.UsageData != nil && v.UsageData.Size > 0 {
			total += v.UsageData.Size
		}
	}
	for _, bc := range du.BuildCache {
		total += bc.Size
	}
	return total, nil
}

// toFields round-trips an API payload through JSON so it can be addressed by key path
func toFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return fields, nil
}

func toRecord(v any) (types.ContainerRecord, error) {
	fields, err := toFields(v)
	if err != nil {
		return types.ContainerRecord{}, err
	}
	return types.NewContainerRecord(fields), nil
}
