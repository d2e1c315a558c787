package health

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CheckType names a probe kind
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypePing CheckType = "ping"
)

// Result is the outcome of one probe
type Result struct {
	Type      CheckType
	Target    string
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

func (r Result) String() string {
	state := "healthy"
	if !r.Healthy {
		state = "unhealthy"
	}
	return fmt.Sprintf("%s %s %s: %s", r.Type, r.Target, state, r.Message)
}

// Checker is a single probe
type Checker interface {
	Check(ctx context.Context) Result
	Type() CheckType
}

func passed(t CheckType, target string, start time.Time, message string) Result {
	return Result{
		Type:      t,
		Target:    target,
		Healthy:   true,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

func failed(t CheckType, target string, start time.Time, format string, args ...any) Result {
	return Result{
		Type:      t,
		Target:    target,
		Message:   fmt.Sprintf(format, args...),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// All runs checkers in order and returns the first unhealthy result, or a
// healthy result joining every message. A cancelled context fails the
// remaining probes without running them.
func All(ctx context.Context, checkers ...Checker) Result {
	start := time.Now()
	messages := make([]string, 0, len(checkers))

	for _, c := range checkers {
		if err := ctx.Err(); err != nil {
			return failed(c.Type(), "", start, "not run: %v", err)
		}
		r := c.Check(ctx)
		if !r.Healthy {
			return r
		}
		messages = append(messages, r.Message)
	}
	return passed("", "", start, strings.Join(messages, "; "))
}
