package health

import (
	"context"
	"net"
	"net/url"
	"time"
)

// DefaultDockerPort is assumed for tcp:// endpoints without a port
const DefaultDockerPort = "2375"

// TCPChecker reports whether address accepts a TCP connection
type TCPChecker struct {
	Address string
	Timeout time.Duration // default 5s
}

// NewTCPChecker creates a dial probe for host:port
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{Address: address, Timeout: 5 * time.Second}
}

// TCPCheckerForEndpoint returns a probe for a tcp:// Docker endpoint. Other
// schemes, such as unix sockets, yield false: a dial there proves nothing
// the ping does not.
func TCPCheckerForEndpoint(endpoint string) (*TCPChecker, bool) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "tcp" || u.Hostname() == "" {
		return nil, false
	}

	port := u.Port()
	if port == "" {
		port = DefaultDockerPort
	}
	return NewTCPChecker(net.JoinHostPort(u.Hostname(), port)), true
}

// Check dials the address and closes the connection at once
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return failed(CheckTypeTCP, t.Address, start, "dial failed: %v", err)
	}
	conn.Close()

	return passed(CheckTypeTCP, t.Address, start, "port open")
}

// Type returns CheckTypeTCP
func (t *TCPChecker) Type() CheckType {
	return CheckTypeTCP
}

// WithTimeout sets the dial timeout
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}
