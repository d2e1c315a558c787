package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type staticServers struct {
	servers []*types.Server
	err     error
}

func (s staticServers) ListServers() ([]*types.Server, error) {
	return s.servers, s.err
}

func TestCollectorCountsServersByRole(t *testing.T) {
	c := NewCollector(staticServers{servers: []*types.Server{
		{ID: "a", Role: types.ServerRoleStandalone, Settings: types.ServerSettings{Reachable: true, Usable: true}},
		{ID: "b", Role: types.ServerRoleStandalone},
		{ID: "c", Role: types.ServerRoleSwarmManager, Settings: types.ServerSettings{Reachable: true, Usable: true}},
	}})
	c.collect()

	assert.Equal(t, float64(2), testutil.ToFloat64(ServersTotal.WithLabelValues("standalone")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ServersTotal.WithLabelValues("swarm-manager")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ServersNotReady.WithLabelValues("standalone")))
	assert.Equal(t, float64(0), testutil.ToFloat64(ServersNotReady.WithLabelValues("swarm-manager")))
	assert.Equal(t, "healthy", GetHealth().Components[ComponentStore])
}

func TestCollectorMarksStoreUnhealthy(t *testing.T) {
	c := NewCollector(staticServers{err: errors.New("database not open")})
	c.collect()

	assert.Contains(t, GetHealth().Components[ComponentStore], "database not open")
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(staticServers{}).WithInterval(10 * time.Millisecond)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
	c.Stop()

	assert.Equal(t, "healthy", GetHealth().Components[ComponentStore])
}
