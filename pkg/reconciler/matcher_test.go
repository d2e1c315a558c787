package reconciler

import (
	"testing"

	"github.com/cuemby/hostkeeper/pkg/remote/remotetest"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestTopologyOf(t *testing.T) {
	tests := []struct {
		role types.ServerRole
		want Topology
	}{
		{types.ServerRoleStandalone, Standalone},
		{types.ServerRoleBuild, Standalone},
		{types.ServerRoleSwarmManager, Clustered},
		{types.ServerRoleSwarmWorker, Clustered},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, TopologyOf(&types.Server{Role: tt.role}))
		})
	}
}

func TestProxyMatcher(t *testing.T) {
	tests := []struct {
		name     string
		topology Topology
		record   types.ContainerRecord
		want     bool
	}{
		{"standalone container", Standalone, remotetest.Record("/hostkeeper-proxy", "running"), true},
		{"standalone without slash", Standalone, remotetest.Record("hostkeeper-proxy", "running"), false},
		{"standalone ignores services", Standalone, remotetest.ServiceRecord("hostkeeper-proxy_traefik", "running"), false},
		{"clustered service", Clustered, remotetest.ServiceRecord("hostkeeper-proxy_traefik", "running"), true},
		{"clustered ignores containers", Clustered, remotetest.Record("/hostkeeper-proxy", "running"), false},
		{"other service", Clustered, remotetest.ServiceRecord("stack_web", "running"), false},
		{"empty record", Standalone, types.NewContainerRecord(nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.topology.ProxyMatcher()(tt.record))
		})
	}
}

func TestProxyMatcherFirstMatchWins(t *testing.T) {
	snapshot := types.ContainerSnapshot{
		remotetest.Record("/app", "running"),
		remotetest.Record("/hostkeeper-proxy", "exited"),
		remotetest.Record("/hostkeeper-proxy", "running"),
	}

	record, ok := snapshot.First(Standalone.ProxyMatcher())
	assert.True(t, ok)
	assert.Equal(t, "exited", record.Status())
}

func TestLogDrainMatcher(t *testing.T) {
	assert.True(t, LogDrainMatcher(remotetest.Record("/hostkeeper-log-drain", "exited")))
	assert.False(t, LogDrainMatcher(remotetest.Record("/hostkeeper-proxy", "running")))
}

func TestTopologyString(t *testing.T) {
	assert.Equal(t, "clustered", Clustered.String())
	assert.Equal(t, "standalone", Standalone.String())
}
