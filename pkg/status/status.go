package status

import (
	"context"
	"fmt"

	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Labels that tie a container or service to an inventory resource
const (
	LabelResourceType = "hostkeeper.resource.type"
	LabelResourceID   = "hostkeeper.resource.id"
)

const (
	StatusExited   = "exited"
	StatusDegraded = "degraded"
)

// Propagator hands a container snapshot to status aggregation
type Propagator interface {
	Propagate(ctx context.Context, server *types.Server, snapshot types.ContainerSnapshot, replicas types.ReplicaCountMap) error
}

// Aggregator derives resource statuses from a container snapshot and writes
// them to the store
type Aggregator struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewAggregator creates an aggregator writing to store
func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: log.WithComponent("status"),
	}
}

type resourceKey struct {
	kind types.ResourceKind
	id   string
}

// Propagate records the observed status of every inventory resource on
// server. Resources with no matching container are marked exited.
func (a *Aggregator) Propagate(ctx context.Context, server *types.Server, snapshot types.ContainerSnapshot, replicas types.ReplicaCountMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	observed := observe(snapshot, replicas)
	a.recordStates(server.ID, snapshot)

	updates := 0
	update := func(kind types.ResourceKind, id, current string) error {
		next, ok := observed[resourceKey{kind: kind, id: id}]
		if !ok {
			next = StatusExited
		}
		if next == current {
			return nil
		}
		if err := a.store.UpdateResourceStatus(kind, id, next); err != nil {
			return fmt.Errorf("failed to update %s %s status: %w", kind, id, err)
		}
		updates++
		return nil
	}

	apps, err := a.store.ListApplications(server.ID)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}
	for _, app := range apps {
		if err := update(types.ResourceApplication, app.ID, app.Status); err != nil {
			return err
		}
	}

	dbs, err := a.store.ListDatabases(server.ID)
	if err != nil {
		return fmt.Errorf("failed to list databases: %w", err)
	}
	for _, db := range dbs {
		if err := update(types.ResourceDatabase, db.ID, db.Status); err != nil {
			return err
		}
	}

	svcs, err := a.store.ListServices(server.ID)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	for _, svc := range svcs {
		if err := update(types.ResourceService, svc.ID, svc.Status); err != nil {
			return err
		}
	}

	previews, err := a.store.ListPreviews(server.ID)
	if err != nil {
		return fmt.Errorf("failed to list previews: %w", err)
	}
	for _, p := range previews {
		if err := update(types.ResourcePreview, p.ID, p.Status); err != nil {
			return err
		}
	}

	a.logger.Debug().
		Str("server_id", server.ID).
		Int("records", len(snapshot)).
		Int("updates", updates).
		Msg("Container statuses propagated")
	return nil
}

func (a *Aggregator) recordStates(serverID string, snapshot types.ContainerSnapshot) {
	counts := make(map[string]int)
	for _, r := range snapshot {
		state := r.Status()
		if state == "" {
			state = "unknown"
		}
		counts[state]++
	}

	metrics.Containers.DeletePartialMatch(prometheus.Labels{"server_id": serverID})
	for state, n := range counts {
		metrics.Containers.WithLabelValues(serverID, state).Set(float64(n))
	}
}

// observe maps labelled records to a status per resource. Swarm services
// with a replica count report "running:n/m". A resource backed by records in
// different states is degraded.
func observe(snapshot types.ContainerSnapshot, replicas types.ReplicaCountMap) map[resourceKey]string {
	observed := make(map[resourceKey]string)
	for _, r := range snapshot {
		labels := r.Labels()
		kind, id := labels[LabelResourceType], labels[LabelResourceID]
		if kind == "" || id == "" {
			continue
		}

		status := recordStatus(r, replicas)
		key := resourceKey{kind: types.ResourceKind(kind), id: id}
		if prev, ok := observed[key]; ok && prev != status {
			status = StatusDegraded
		}
		observed[key] = status
	}
	return observed
}

func recordStatus(r types.ContainerRecord, replicas types.ReplicaCountMap) string {
	status := r.Status()
	if status == "" {
		status = StatusExited
	}

	name := r.SpecName()
	if name == "" {
		return status
	}
	running, ok := replicas[name]
	if !ok {
		return status
	}
	desired, ok := r.Get("ServiceStatus.DesiredTasks")
	if !ok {
		return status
	}
	switch n := desired.(type) {
	case float64:
		return fmt.Sprintf("%s:%d/%d", status, running, int(n))
	case int:
		return fmt.Sprintf("%s:%d/%d", status, running, n)
	default:
		return status
	}
}
