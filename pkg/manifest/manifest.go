package manifest

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Manifest declares teams, servers and the workloads on each server
type Manifest struct {
	Teams   []TeamSpec   `yaml:"teams"`
	Servers []ServerSpec `yaml:"servers"`
}

// TeamSpec declares a team
type TeamSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ServerSpec declares a managed server
type ServerSpec struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Team    string `yaml:"team,omitempty"`
	Address string `yaml:"address"`
	Role    string `yaml:"role"`

	// Reachable and Usable default to true
	Reachable *bool `yaml:"reachable,omitempty"`
	Usable    *bool `yaml:"usable,omitempty"`

	Sentinel struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url,omitempty"`
	} `yaml:"sentinel"`
	LogDrain                bool  `yaml:"log_drain"`
	DiskUsageThresholdBytes int64 `yaml:"disk_usage_threshold_bytes,omitempty"`

	Proxy struct {
		Type      string `yaml:"type"`
		ForceStop bool   `yaml:"force_stop,omitempty"`
	} `yaml:"proxy"`

	Applications []ResourceSpec `yaml:"applications,omitempty"`
	Databases    []ResourceSpec `yaml:"databases,omitempty"`
	Services     []ResourceSpec `yaml:"services,omitempty"`
	Previews     []PreviewSpec  `yaml:"previews,omitempty"`
}

// ResourceSpec declares an application, database or service
type ResourceSpec struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Network string `yaml:"network,omitempty"`
	Engine  string `yaml:"engine,omitempty"` // databases only
}

// PreviewSpec declares a pull-request preview environment
type PreviewSpec struct {
	ID            string `yaml:"id"`
	Application   string `yaml:"application"`
	PullRequestID int    `yaml:"pull_request"`
	Network       string `yaml:"network,omitempty"`
}

// Summary counts what Apply wrote
type Summary struct {
	Teams     int
	Servers   int
	Resources int
}

// ReadFile parses and validates the manifest at path
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks roles, proxy types and references between entries
func (m *Manifest) Validate() error {
	teams := make(map[string]bool)
	for i, t := range m.Teams {
		if t.ID == "" {
			return fmt.Errorf("teams[%d]: id is required", i)
		}
		teams[t.ID] = true
	}

	seen := make(map[string]bool)
	for i, s := range m.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}
		if s.Address == "" {
			return fmt.Errorf("server %s: address is required", s.Name)
		}
		if s.ID != "" {
			if seen[s.ID] {
				return fmt.Errorf("server %s: duplicate id %s", s.Name, s.ID)
			}
			seen[s.ID] = true
		}
		if _, err := ParseRole(s.Role); err != nil {
			return fmt.Errorf("server %s: %w", s.Name, err)
		}
		if _, err := ParseProxyType(s.Proxy.Type); err != nil {
			return fmt.Errorf("server %s: %w", s.Name, err)
		}
		if s.Team != "" && len(m.Teams) > 0 && !teams[s.Team] {
			return fmt.Errorf("server %s: unknown team %s", s.Name, s.Team)
		}
	}
	return nil
}

// Apply writes the manifest to store. Existing servers with the same ID are
// replaced; their last observed proxy status is kept.
func (m *Manifest) Apply(store storage.Store) (Summary, error) {
	var sum Summary
	now := time.Now()

	for _, t := range m.Teams {
		if err := store.CreateTeam(&types.Team{ID: t.ID, Name: t.Name, CreatedAt: now}); err != nil {
			return sum, fmt.Errorf("failed to save team %s: %w", t.ID, err)
		}
		sum.Teams++
	}

	for _, spec := range m.Servers {
		server := spec.Server(now)
		if existing, err := store.GetServer(server.ID); err == nil {
			server.CreatedAt = existing.CreatedAt
			server.Proxy.Status = existing.Proxy.Status
		}
		if err := store.CreateServer(server); err != nil {
			return sum, fmt.Errorf("failed to save server %s: %w", server.Name, err)
		}
		sum.Servers++

		n, err := applyResources(store, server.ID, spec)
		sum.Resources += n
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// Server converts the spec into a server record
func (s ServerSpec) Server(now time.Time) *types.Server {
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	role, _ := ParseRole(s.Role)
	proxyType, _ := ParseProxyType(s.Proxy.Type)

	return &types.Server{
		ID:      id,
		Name:    s.Name,
		TeamID:  s.Team,
		Address: s.Address,
		Role:    role,
		Settings: types.ServerSettings{
			Reachable:               boolOr(s.Reachable, true),
			Usable:                  boolOr(s.Usable, true),
			SentinelEnabled:         s.Sentinel.Enabled,
			SentinelURL:             s.Sentinel.URL,
			LogDrainEnabled:         s.LogDrain,
			DiskUsageThresholdBytes: s.DiskUsageThresholdBytes,
		},
		Proxy: types.ProxyConfig{
			Type:      proxyType,
			ForceStop: s.Proxy.ForceStop,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func applyResources(store storage.Store, serverID string, spec ServerSpec) (int, error) {
	n := 0
	for _, r := range spec.Applications {
		if err := store.CreateApplication(&types.Application{ID: idOr(r.ID), ServerID: serverID, Name: r.Name, Network: r.Network}); err != nil {
			return n, fmt.Errorf("failed to save application %s: %w", r.Name, err)
		}
		n++
	}
	for _, r := range spec.Databases {
		if err := store.CreateDatabase(&types.Database{ID: idOr(r.ID), ServerID: serverID, Name: r.Name, Engine: r.Engine, Network: r.Network}); err != nil {
			return n, fmt.Errorf("failed to save database %s: %w", r.Name, err)
		}
		n++
	}
	for _, r := range spec.Services {
		if err := store.CreateService(&types.Service{ID: idOr(r.ID), ServerID: serverID, Name: r.Name, Network: r.Network}); err != nil {
			return n, fmt.Errorf("failed to save service %s: %w", r.Name, err)
		}
		n++
	}
	for _, p := range spec.Previews {
		preview := &types.Preview{
			ID:            idOr(p.ID),
			ServerID:      serverID,
			ApplicationID: p.Application,
			PullRequestID: p.PullRequestID,
			Network:       p.Network,
		}
		if err := store.CreatePreview(preview); err != nil {
			return n, fmt.Errorf("failed to save preview %d: %w", p.PullRequestID, err)
		}
		n++
	}
	return n, nil
}

// ParseRole accepts a server role name; empty means standalone
func ParseRole(s string) (types.ServerRole, error) {
	switch types.ServerRole(s) {
	case "":
		return types.ServerRoleStandalone, nil
	case types.ServerRoleStandalone, types.ServerRoleSwarmManager, types.ServerRoleSwarmWorker, types.ServerRoleBuild:
		return types.ServerRole(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// ParseProxyType accepts a proxy type name; empty means none
func ParseProxyType(s string) (types.ProxyType, error) {
	switch types.ProxyType(s) {
	case "":
		return types.ProxyTypeNone, nil
	case types.ProxyTypeNone, types.ProxyTypeTraefik, types.ProxyTypeCaddy:
		return types.ProxyType(s), nil
	default:
		return "", fmt.Errorf("unknown proxy type %q", s)
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func idOr(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}
