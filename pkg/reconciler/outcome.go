package reconciler

import (
	"time"
)

// Result classifies how a server check ended
type Result string

const (
	ResultCompleted    Result = "completed"
	ResultNotReachable Result = "not_reachable"
	ResultNoContainers Result = "no_containers"
	ResultFailed       Result = "failed"
)

const (
	msgNotReachable = "Server is not reachable or not ready."
	msgNoContainers = "No containers found."
)

// Outcome reports one server check run. Only ResultFailed carries an error;
// not_reachable and no_containers are informational.
type Outcome struct {
	RunID     string
	ServerID  string
	Result    Result
	Message   string
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Failed reports whether the run ended with an error
func (o Outcome) Failed() bool {
	return o.Result == ResultFailed
}
