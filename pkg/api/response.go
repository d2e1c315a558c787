package api

import (
	"time"

	"github.com/cuemby/hostkeeper/pkg/reconciler"
	"github.com/cuemby/hostkeeper/pkg/types"
)

// ServerResponse is the JSON form of a server
type ServerResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	TeamID          string    `json:"team_id,omitempty"`
	Address         string    `json:"address"`
	Role            string    `json:"role"`
	Reachable       bool      `json:"reachable"`
	Usable          bool      `json:"usable"`
	SentinelEnabled bool      `json:"sentinel_enabled"`
	LogDrainEnabled bool      `json:"log_drain_enabled"`
	ProxyType       string    `json:"proxy_type"`
	ProxyForceStop  bool      `json:"proxy_force_stop"`
	ProxyStatus     string    `json:"proxy_status,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OutcomeResponse is the JSON form of a server check outcome
type OutcomeResponse struct {
	RunID      string    `json:"run_id"`
	ServerID   string    `json:"server_id"`
	Result     string    `json:"result"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// NewServerResponse converts a stored server to its JSON form
func NewServerResponse(s *types.Server) ServerResponse {
	return ServerResponse{
		ID:              s.ID,
		Name:            s.Name,
		TeamID:          s.TeamID,
		Address:         s.Address,
		Role:            string(s.Role),
		Reachable:       s.Settings.Reachable,
		Usable:          s.Settings.Usable,
		SentinelEnabled: s.Settings.SentinelEnabled,
		LogDrainEnabled: s.Settings.LogDrainEnabled,
		ProxyType:       string(s.Proxy.Type),
		ProxyForceStop:  s.Proxy.ForceStop,
		ProxyStatus:     s.Proxy.Status,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toOutcomeResponse(o reconciler.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		RunID:      o.RunID,
		ServerID:   o.ServerID,
		Result:     string(o.Result),
		Message:    o.Message,
		StartedAt:  o.StartedAt,
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
