package reconciler

import (
	"context"
	"strings"
	"sync"

	"github.com/cuemby/hostkeeper/pkg/notify"
	"github.com/cuemby/hostkeeper/pkg/proxy"
	"github.com/cuemby/hostkeeper/pkg/remote"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/tasks"
	"github.com/cuemby/hostkeeper/pkg/types"
)

// Action kinds recorded by a dry run
const (
	ActionProxyStart     = "proxy.start"
	ActionProxyNetworks  = "proxy.connect-networks"
	ActionProxyStatus    = "proxy.status"
	ActionResourceStatus = "resource.status"
	ActionNotify         = "notify"
)

// Action is a change a dry run withheld
type Action struct {
	Kind     string
	ServerID string
	Detail   string
}

// Plan collects what a dry run would have done
type Plan struct {
	// Tasks holds the background tasks that would have been submitted
	Tasks *tasks.Recorder

	mu      sync.Mutex
	actions []Action
}

// Actions returns the withheld changes in the order they were attempted
func (p *Plan) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Action(nil), p.actions...)
}

func (p *Plan) add(kind, serverID, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, Action{Kind: kind, ServerID: serverID, Detail: detail})
}

// DryRun returns a copy of deps that records store writes, proxy changes,
// notifications and task submissions in a Plan instead of performing them.
// Reads still reach the store and the host. The Propagator is kept as is;
// build it on the returned Store to preview status changes.
func DryRun(deps Deps) (Deps, *Plan) {
	plan := &Plan{Tasks: &tasks.Recorder{}}

	deps.Store = dryRunStore{Store: deps.Store, plan: plan}
	deps.Submitter = plan.Tasks
	deps.Notifier = dryRunNotifier{plan: plan}
	if deps.Proxies != nil {
		deps.Proxies = dryRunProxies{Manager: deps.Proxies, plan: plan}
	}
	return deps, plan
}

type dryRunStore struct {
	storage.Store
	plan *Plan
}

func (s dryRunStore) UpdateProxyStatus(serverID, status string) error {
	s.plan.add(ActionProxyStatus, serverID, status)
	return nil
}

func (s dryRunStore) UpdateResourceStatus(kind types.ResourceKind, id, status string) error {
	s.plan.add(ActionResourceStatus, "", string(kind)+"/"+id+" -> "+status)
	return nil
}

// dryRunProxies passes the start precondition through, since it only reads
type dryRunProxies struct {
	proxy.Manager
	plan *Plan
}

func (p dryRunProxies) Start(ctx context.Context, host remote.Host, server *types.Server, force bool) error {
	p.plan.add(ActionProxyStart, server.ID, string(server.Proxy.Type))
	return nil
}

func (p dryRunProxies) ConnectNetworks(ctx context.Context, host remote.Host, server *types.Server, networks []string) error {
	p.plan.add(ActionProxyNetworks, server.ID, strings.Join(networks, ","))
	return nil
}

type dryRunNotifier struct {
	plan *Plan
}

func (n dryRunNotifier) Notify(ctx context.Context, teamID string, notification notify.Notification) error {
	n.plan.add(ActionNotify, notification.ServerID, teamID+": "+string(notification.Kind))
	return nil
}
