package manifest

import (
	"testing"
	"time"

	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
teams:
  - id: team-1
    name: Platform
servers:
  - id: edge-1
    name: edge-1
    team: team-1
    address: tcp://10.0.0.5:2375
    log_drain: true
    sentinel:
      enabled: true
      url: http://10.0.0.5:8888/health
    proxy:
      type: traefik
    applications:
      - id: app-1
        name: shop
        network: shop-net
    databases:
      - id: db-1
        name: shop-db
        engine: postgres
    previews:
      - id: pr-1
        application: app-1
        pull_request: 42
  - name: builder
    address: unix:///var/run/docker.sock
    role: build
    reachable: false
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, m.Servers, 2)

	edge := m.Servers[0].Server(timeZero)
	assert.Equal(t, "edge-1", edge.ID)
	assert.Equal(t, types.ServerRoleStandalone, edge.Role)
	assert.Equal(t, types.ProxyTypeTraefik, edge.Proxy.Type)
	assert.True(t, edge.Settings.Reachable)
	assert.True(t, edge.Settings.Usable)
	assert.True(t, edge.Settings.LogDrainEnabled)
	assert.Equal(t, "http://10.0.0.5:8888/health", edge.Settings.SentinelURL)

	builder := m.Servers[1].Server(timeZero)
	assert.NotEmpty(t, builder.ID, "missing id is generated")
	assert.Equal(t, types.ServerRoleBuild, builder.Role)
	assert.Equal(t, types.ProxyTypeNone, builder.Proxy.Type)
	assert.False(t, builder.Settings.Reachable)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "unknown field", doc: "servers:\n  - name: a\n    address: x\n    colour: red\n", want: "colour"},
		{name: "missing address", doc: "servers:\n  - name: a\n", want: "address is required"},
		{name: "bad role", doc: "servers:\n  - name: a\n    address: x\n    role: leader\n", want: "unknown role"},
		{name: "bad proxy", doc: "servers:\n  - name: a\n    address: x\n    proxy:\n      type: nginx\n", want: "unknown proxy type"},
		{name: "duplicate id", doc: "servers:\n  - {id: a, name: a, address: x}\n  - {id: a, name: b, address: y}\n", want: "duplicate id"},
		{name: "unknown team", doc: "teams:\n  - id: t1\nservers:\n  - {name: a, address: x, team: t2}\n", want: "unknown team"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApply(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	sum, err := m.Apply(store)
	require.NoError(t, err)
	assert.Equal(t, Summary{Teams: 1, Servers: 2, Resources: 3}, sum)

	team, err := store.GetTeam("team-1")
	require.NoError(t, err)
	assert.Equal(t, "Platform", team.Name)

	apps, err := store.ListApplications("edge-1")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "shop-net", apps[0].Network)

	previews, err := store.ListPreviews("edge-1")
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, 42, previews[0].PullRequestID)
}

func TestApplyKeepsObservedProxyStatus(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	_, err = m.Apply(store)
	require.NoError(t, err)
	require.NoError(t, store.UpdateProxyStatus("edge-1", "running"))

	_, err = m.Apply(store)
	require.NoError(t, err)

	server, err := store.GetServer("edge-1")
	require.NoError(t, err)
	assert.Equal(t, "running", server.Proxy.Status)
}

var timeZero = time.Time{}
