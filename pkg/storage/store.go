package storage

import (
	"errors"

	"github.com/cuemby/hostkeeper/pkg/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// Store defines the interface for server and inventory persistence
type Store interface {
	// Servers
	CreateServer(server *types.Server) error
	GetServer(id string) (*types.Server, error)
	ListServers() ([]*types.Server, error)
	UpdateServer(server *types.Server) error
	DeleteServer(id string) error
	// UpdateProxyStatus overwrites only the recorded proxy status
	UpdateProxyStatus(serverID, status string) error

	// Teams
	CreateTeam(team *types.Team) error
	GetTeam(id string) (*types.Team, error)
	ListTeams() ([]*types.Team, error)

	// Inventory
	CreateApplication(app *types.Application) error
	ListApplications(serverID string) ([]*types.Application, error)
	CreateDatabase(db *types.Database) error
	ListDatabases(serverID string) ([]*types.Database, error)
	CreateService(svc *types.Service) error
	ListServices(serverID string) ([]*types.Service, error)
	CreatePreview(preview *types.Preview) error
	ListPreviews(serverID string) ([]*types.Preview, error)
	// UpdateResourceStatus records the aggregated container status of a resource
	UpdateResourceStatus(kind types.ResourceKind, id, status string) error

	// Utility
	Close() error
}
