package types

import (
	"time"
)

// Server represents a managed container host
type Server struct {
	ID        string
	Name      string
	TeamID    string // Owning team, empty when unowned
	Address   string // Docker endpoint (tcp://host:2375, unix:///var/run/docker.sock)
	Role      ServerRole
	Settings  ServerSettings
	Proxy     ProxyConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServerRole defines the topology role of a server
type ServerRole string

const (
	ServerRoleStandalone   ServerRole = "standalone"
	ServerRoleSwarmManager ServerRole = "swarm-manager"
	ServerRoleSwarmWorker  ServerRole = "swarm-worker"
	ServerRoleBuild        ServerRole = "build"
)

// ServerSettings holds per-server feature flags and readiness state
type ServerSettings struct {
	Reachable bool
	Usable    bool

	SentinelEnabled bool
	SentinelURL     string // Health endpoint of the sentinel agent, optional

	LogDrainEnabled bool

	DiskUsageThresholdBytes int64 // 0 disables the storage alert
}

// ProxyConfig is the reverse proxy configuration of a server
type ProxyConfig struct {
	Type      ProxyType
	ForceStop bool   // Administratively stopped, never restarted automatically
	Status    string // Last observed container status
}

// ProxyType identifies the reverse proxy implementation
type ProxyType string

const (
	ProxyTypeNone    ProxyType = "none"
	ProxyTypeTraefik ProxyType = "traefik"
	ProxyTypeCaddy   ProxyType = "caddy"
)

// IsSwarm reports whether the server is part of a swarm cluster
func (s *Server) IsSwarm() bool {
	return s.Role == ServerRoleSwarmManager || s.Role == ServerRoleSwarmWorker
}

// IsSwarmWorker reports whether the server is a secondary swarm node
func (s *Server) IsSwarmWorker() bool {
	return s.Role == ServerRoleSwarmWorker
}

// IsBuildServer reports whether the server only runs builds
func (s *Server) IsBuildServer() bool {
	return s.Role == ServerRoleBuild
}

// IsReady reports whether the server is flagged reachable and usable
func (s *Server) IsReady() bool {
	return s.Settings.Reachable && s.Settings.Usable
}

// ProxySet reports whether a reverse proxy is configured
func (s *Server) ProxySet() bool {
	return s.Proxy.Type != "" && s.Proxy.Type != ProxyTypeNone
}

// SentinelActive reports whether the monitoring agent should be kept running
func (s *Server) SentinelActive() bool {
	return s.Settings.SentinelEnabled && !s.IsBuildServer()
}

// LogDrainActive reports whether log shipping is enabled
func (s *Server) LogDrainActive() bool {
	return s.Settings.LogDrainEnabled
}

// Team owns servers and receives their notifications
type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ResourceKind identifies an inventory resource type
type ResourceKind string

const (
	ResourceApplication ResourceKind = "application"
	ResourceDatabase    ResourceKind = "database"
	ResourceService     ResourceKind = "service"
	ResourcePreview     ResourceKind = "preview"
)

// Application is a deployed application on a server
type Application struct {
	ID              string
	ServerID        string
	Name            string
	Network         string // Docker network the application is attached to
	Status          string
	StatusUpdatedAt time.Time
}

// Database is a managed database on a server
type Database struct {
	ID              string
	ServerID        string
	Name            string
	Engine          string // postgres, mysql, redis, ...
	Network         string
	Status          string
	StatusUpdatedAt time.Time
}

// Service is a multi-container service stack on a server
type Service struct {
	ID              string
	ServerID        string
	Name            string
	Network         string
	Status          string
	StatusUpdatedAt time.Time
}

// Preview is a pull-request preview environment of an application
type Preview struct {
	ID              string
	ServerID        string
	ApplicationID   string
	PullRequestID   int
	Network         string
	Status          string
	StatusUpdatedAt time.Time
}

// Inventory is the set of workloads declared on a server
type Inventory struct {
	Applications []*Application
	Databases    []*Database
	Services     []*Service
	Previews     []*Preview
}

// Networks returns every network named by the inventory, in declaration order
func (i *Inventory) Networks() []string {
	var networks []string
	for _, app := range i.Applications {
		networks = append(networks, app.Network)
	}
	for _, db := range i.Databases {
		networks = append(networks, db.Network)
	}
	for _, svc := range i.Services {
		networks = append(networks, svc.Network)
	}
	for _, p := range i.Previews {
		networks = append(networks, p.Network)
	}
	return networks
}

// ReplicaCountMap maps a swarm service name to its running replica count
type ReplicaCountMap map[string]int
