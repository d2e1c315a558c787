// Package remotetest provides an in-memory remote.Host for tests.
package remotetest

import (
	"context"
	"sync"

	"github.com/cuemby/hostkeeper/pkg/remote"
	"github.com/cuemby/hostkeeper/pkg/types"
)

// Host is a scripted remote.Host that records every call
type Host struct {
	mu sync.Mutex

	PingErr error

	Containers    types.ContainerSnapshot
	ContainersErr error // ListContainers only
	ListErr       error
	Services   types.ContainerSnapshot
	Replicas   types.ReplicaCountMap

	Ports    map[int]string
	PortsErr error

	StartErr         error
	RestartErr       error
	CreateErr        error
	CreateServiceErr error
	EnsureNetworkErr error
	ConnectErr       error

	Usage    int64
	UsageErr error

	calls     []string
	created   []remote.ContainerSpec
	connected []string
}

var _ remote.Host = (*Host)(nil)

func (h *Host) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

// Calls returns the names of the invoked methods in order
func (h *Host) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// CallCount returns how many times method was invoked
func (h *Host) CallCount(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == method {
			n++
		}
	}
	return n
}

// Created returns the specs passed to CreateContainer and CreateService
func (h *Host) Created() []remote.ContainerSpec {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]remote.ContainerSpec(nil), h.created...)
}

// Connected returns "network/container" for each successful ConnectNetwork
func (h *Host) Connected() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.connected...)
}

func (h *Host) Ping(ctx context.Context) error {
	h.record("Ping")
	return h.PingErr
}

func (h *Host) ListContainers(ctx context.Context) (types.ContainerSnapshot, error) {
	h.record("ListContainers")
	if h.ContainersErr != nil {
		return nil, h.ContainersErr
	}
	return h.Containers, h.ListErr
}

func (h *Host) ListServices(ctx context.Context) (types.ContainerSnapshot, types.ReplicaCountMap, error) {
	h.record("ListServices")
	return h.Services, h.Replicas, h.ListErr
}

func (h *Host) PublishedPorts(ctx context.Context) (map[int]string, error) {
	h.record("PublishedPorts")
	return h.Ports, h.PortsErr
}

func (h *Host) StartContainer(ctx context.Context, name string) error {
	h.record("StartContainer")
	return h.StartErr
}

func (h *Host) RestartContainer(ctx context.Context, name string) error {
	h.record("RestartContainer")
	return h.RestartErr
}

func (h *Host) CreateContainer(ctx context.Context, spec remote.ContainerSpec) error {
	h.record("CreateContainer")
	if h.CreateErr != nil {
		return h.CreateErr
	}
	h.mu.Lock()
	h.created = append(h.created, spec)
	h.mu.Unlock()
	return nil
}

func (h *Host) CreateService(ctx context.Context, spec remote.ContainerSpec) error {
	h.record("CreateService")
	if h.CreateServiceErr != nil {
		return h.CreateServiceErr
	}
	h.mu.Lock()
	h.created = append(h.created, spec)
	h.mu.Unlock()
	return nil
}

func (h *Host) EnsureNetwork(ctx context.Context, name string, overlay bool) error {
	h.record("EnsureNetwork")
	return h.EnsureNetworkErr
}

func (h *Host) ConnectNetwork(ctx context.Context, network, container string) error {
	h.record("ConnectNetwork")
	if h.ConnectErr != nil {
		return h.ConnectErr
	}
	h.mu.Lock()
	h.connected = append(h.connected, network+"/"+container)
	h.mu.Unlock()
	return nil
}

func (h *Host) DiskUsage(ctx context.Context) (int64, error) {
	h.record("DiskUsage")
	return h.Usage, h.UsageErr
}

func (h *Host) Close() error {
	h.record("Close")
	return nil
}

// Connector hands out the same Host for every server
type Connector struct {
	Host *Host
	Err  error

	mu       sync.Mutex
	connects int
}

func (c *Connector) Connect(ctx context.Context, server *types.Server) (remote.Host, error) {
	c.mu.Lock()
	c.connects++
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Host, nil
}

// Connects returns the number of Connect calls
func (c *Connector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Record builds a container record from a name and status
func Record(name, status string) types.ContainerRecord {
	return types.NewContainerRecord(map[string]any{
		"Name":  name,
		"State": map[string]any{"Status": status},
	})
}

// ServiceRecord builds a swarm service record from a spec name and status
func ServiceRecord(specName, status string) types.ContainerRecord {
	return types.NewContainerRecord(map[string]any{
		"Spec":  map[string]any{"Name": specName},
		"State": map[string]any{"Status": status},
	})
}
