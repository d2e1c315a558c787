package health

import (
	"context"
	"time"
)

// Pinger is anything that answers a liveness ping, such as a remote.Host
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports whether a Docker daemon answers its ping endpoint
type PingChecker struct {
	Target  Pinger
	Name    string        // shown as the result target
	Timeout time.Duration // 0 relies on the caller's context
}

// NewPingChecker creates a ping probe with a 10 second timeout
func NewPingChecker(target Pinger) *PingChecker {
	return &PingChecker{Target: target, Name: "docker", Timeout: 10 * time.Second}
}

// Check pings the target
func (p *PingChecker) Check(ctx context.Context) Result {
	start := time.Now()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	if err := p.Target.Ping(ctx); err != nil {
		return failed(CheckTypePing, p.Name, start, "%v", err)
	}
	return passed(CheckTypePing, p.Name, start, "daemon answered ping")
}

// Type returns CheckTypePing
func (p *PingChecker) Type() CheckType {
	return CheckTypePing
}
