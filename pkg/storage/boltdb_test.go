package storage

import (
	"errors"
	"testing"

	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestServerCRUD(t *testing.T) {
	store := newTestStore(t)

	server := &types.Server{
		ID:      "srv-1",
		Name:    "edge-1",
		Address: "tcp://10.0.0.5:2375",
		Role:    types.ServerRoleStandalone,
		Proxy:   types.ProxyConfig{Type: types.ProxyTypeTraefik},
	}
	require.NoError(t, store.CreateServer(server))

	got, err := store.GetServer("srv-1")
	require.NoError(t, err)
	assert.Equal(t, "edge-1", got.Name)
	assert.Equal(t, types.ProxyTypeTraefik, got.Proxy.Type)

	got.Name = "edge-1b"
	require.NoError(t, store.UpdateServer(got))

	servers, err := store.ListServers()
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "edge-1b", servers[0].Name)

	require.NoError(t, store.DeleteServer("srv-1"))
	_, err = store.GetServer("srv-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateServerRequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.CreateServer(&types.Server{Name: "no-id"}))
}

func TestUpdateProxyStatus(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateServer(&types.Server{
		ID:       "srv-1",
		Settings: types.ServerSettings{LogDrainEnabled: true},
		Proxy:    types.ProxyConfig{Type: types.ProxyTypeCaddy, Status: "exited"},
	}))

	require.NoError(t, store.UpdateProxyStatus("srv-1", "running"))

	got, err := store.GetServer("srv-1")
	require.NoError(t, err)
	assert.Equal(t, "running", got.Proxy.Status)
	assert.Equal(t, types.ProxyTypeCaddy, got.Proxy.Type, "other fields untouched")
	assert.True(t, got.Settings.LogDrainEnabled)
	assert.False(t, got.UpdatedAt.IsZero())

	err = store.UpdateProxyStatus("missing", "running")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInventoryByServer(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateApplication(&types.Application{ID: "app-1", ServerID: "srv-1", Network: "net-a"}))
	require.NoError(t, store.CreateApplication(&types.Application{ID: "app-2", ServerID: "srv-2"}))
	require.NoError(t, store.CreateDatabase(&types.Database{ID: "db-1", ServerID: "srv-1", Engine: "postgres"}))
	require.NoError(t, store.CreateService(&types.Service{ID: "svc-1", ServerID: "srv-1"}))
	require.NoError(t, store.CreatePreview(&types.Preview{ID: "pr-1", ServerID: "srv-2", ApplicationID: "app-2"}))

	apps, err := store.ListApplications("srv-1")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app-1", apps[0].ID)

	dbs, err := store.ListDatabases("srv-1")
	require.NoError(t, err)
	assert.Len(t, dbs, 1)

	svcs, err := store.ListServices("srv-1")
	require.NoError(t, err)
	assert.Len(t, svcs, 1)

	previews, err := store.ListPreviews("srv-1")
	require.NoError(t, err)
	assert.Empty(t, previews)

	previews, err = store.ListPreviews("srv-2")
	require.NoError(t, err)
	assert.Len(t, previews, 1)
}

func TestUpdateResourceStatus(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateApplication(&types.Application{ID: "app-1", ServerID: "srv-1"}))
	require.NoError(t, store.CreateService(&types.Service{ID: "svc-1", ServerID: "srv-1"}))

	require.NoError(t, store.UpdateResourceStatus(types.ResourceApplication, "app-1", "running"))
	require.NoError(t, store.UpdateResourceStatus(types.ResourceService, "svc-1", "running:2/3"))

	apps, err := store.ListApplications("srv-1")
	require.NoError(t, err)
	assert.Equal(t, "running", apps[0].Status)
	assert.False(t, apps[0].StatusUpdatedAt.IsZero())

	svcs, err := store.ListServices("srv-1")
	require.NoError(t, err)
	assert.Equal(t, "running:2/3", svcs[0].Status)

	err = store.UpdateResourceStatus(types.ResourceDatabase, "db-missing", "running")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, store.UpdateResourceStatus("widget", "x", "running"))
}

func TestTeams(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateTeam(&types.Team{ID: "team-1", Name: "ops"}))

	team, err := store.GetTeam("team-1")
	require.NoError(t, err)
	assert.Equal(t, "ops", team.Name)

	teams, err := store.ListTeams()
	require.NoError(t, err)
	assert.Len(t, teams, 1)
}

func TestDeleteServerRemovesInventory(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateServer(&types.Server{ID: "srv-1"}))
	require.NoError(t, store.CreateServer(&types.Server{ID: "srv-2"}))
	require.NoError(t, store.CreateApplication(&types.Application{ID: "app-1", ServerID: "srv-1"}))
	require.NoError(t, store.CreateApplication(&types.Application{ID: "app-2", ServerID: "srv-2"}))
	require.NoError(t, store.CreateDatabase(&types.Database{ID: "db-1", ServerID: "srv-1"}))
	require.NoError(t, store.CreatePreview(&types.Preview{ID: "pr-1", ServerID: "srv-1"}))

	require.NoError(t, store.DeleteServer("srv-1"))

	apps, err := store.ListApplications("srv-1")
	require.NoError(t, err)
	assert.Empty(t, apps)
	dbs, err := store.ListDatabases("srv-1")
	require.NoError(t, err)
	assert.Empty(t, dbs)
	previews, err := store.ListPreviews("srv-1")
	require.NoError(t, err)
	assert.Empty(t, previews)

	others, err := store.ListApplications("srv-2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}
