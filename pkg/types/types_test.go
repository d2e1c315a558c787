package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerRolePredicates(t *testing.T) {
	tests := []struct {
		role        ServerRole
		swarm       bool
		swarmWorker bool
		build       bool
	}{
		{ServerRoleStandalone, false, false, false},
		{ServerRoleSwarmManager, true, false, false},
		{ServerRoleSwarmWorker, true, true, false},
		{ServerRoleBuild, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			s := &Server{Role: tt.role}
			assert.Equal(t, tt.swarm, s.IsSwarm())
			assert.Equal(t, tt.swarmWorker, s.IsSwarmWorker())
			assert.Equal(t, tt.build, s.IsBuildServer())
		})
	}
}

func TestServerFlags(t *testing.T) {
	s := &Server{}
	assert.False(t, s.ProxySet())
	assert.False(t, s.IsReady())

	s.Proxy.Type = ProxyTypeNone
	assert.False(t, s.ProxySet())

	s.Proxy.Type = ProxyTypeTraefik
	assert.True(t, s.ProxySet())

	s.Settings.Reachable = true
	assert.False(t, s.IsReady())
	s.Settings.Usable = true
	assert.True(t, s.IsReady())

	s.Settings.SentinelEnabled = true
	assert.True(t, s.SentinelActive())
	s.Role = ServerRoleBuild
	assert.False(t, s.SentinelActive())
}

func TestInventoryNetworks(t *testing.T) {
	inv := &Inventory{
		Applications: []*Application{{Network: "app-net"}},
		Databases:    []*Database{{Network: "db-net"}},
		Services:     []*Service{{Network: "svc-net"}},
		Previews:     []*Preview{{Network: "app-net"}},
	}

	assert.Equal(t, []string{"app-net", "db-net", "svc-net", "app-net"}, inv.Networks())
	assert.Empty(t, (&Inventory{}).Networks())
}
