package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/hostkeeper/pkg/events"
	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/cuemby/hostkeeper/pkg/reconciler"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/rs/zerolog"
)

// ErrRunActive is returned when a check for the server is already running
var ErrRunActive = errors.New("server check already running")

// ServerSource is the part of the store the scheduler reads
type ServerSource interface {
	ListServers() ([]*types.Server, error)
	GetServer(id string) (*types.Server, error)
}

// Checker runs one server check
type Checker interface {
	Check(ctx context.Context, server *types.Server) reconciler.Outcome
}

// Config controls dispatch timing
type Config struct {
	Interval      time.Duration // time between dispatch cycles
	RunTimeout    time.Duration // wall-clock budget of one run
	Backoff       time.Duration // delay before the same server is eligible again
	MaxConcurrent int           // runs in flight across all servers

	// Events receives one event per finished run when set
	Events *events.Broker
}

// Scheduler starts a server check for every server on each tick. A server
// never has more than one active run, and each run gets exactly one attempt.
type Scheduler struct {
	servers ServerSource
	checker Checker
	cfg     Config

	mu       sync.Mutex
	active   map[string]bool
	eligible map[string]time.Time
	sem      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger zerolog.Logger
	now    func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(servers ServerSource, checker Checker, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 60 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		servers:  servers,
		checker:  checker,
		cfg:      cfg,
		active:   make(map[string]bool),
		eligible: make(map[string]time.Time),
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		logger:   log.WithComponent("scheduler"),
		now:      time.Now,
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	// Three missed ticks mark the scheduler stalled
	metrics.SetComponentMaxAge(metrics.ComponentScheduler, 3*s.cfg.Interval)
	metrics.UpdateComponent(metrics.ComponentScheduler, true, "")
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("max_concurrent", s.cfg.MaxConcurrent).
		Msg("Scheduler started")
}

// Stop stops the loop, cancels running checks and waits for them to return
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.cancel()
	s.wg.Wait()
	metrics.UpdateComponent(metrics.ComponentScheduler, false, "stopped")
	s.logger.Info().Msg("Scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.dispatch()
	for {
		select {
		case <-ticker.C:
			s.dispatch()
		case <-s.stopCh:
			return
		}
	}
}

// dispatch starts a run for every eligible server and returns how many started
func (s *Scheduler) dispatch() int {
	servers, err := s.servers.ListServers()
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentScheduler, false, err.Error())
		s.logger.Error().Err(err).Msg("Failed to list servers")
		return 0
	}
	metrics.UpdateComponent(metrics.ComponentScheduler, true, fmt.Sprintf("%d servers", len(servers)))

	started := 0
	for _, server := range servers {
		if reason := s.acquire(server.ID); reason != "" {
			metrics.ServerChecksSkipped.WithLabelValues(reason).Inc()
			s.logger.Debug().Str("server_id", server.ID).Str("reason", reason).Msg("Server check skipped")
			continue
		}

		select {
		case s.sem <- struct{}{}:
		default:
			s.release(server.ID, false)
			metrics.ServerChecksSkipped.WithLabelValues("capacity").Inc()
			continue
		}

		s.wg.Add(1)
		go func(server *types.Server) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			s.execute(s.ctx, server)
		}(server)
		started++
	}
	return started
}

// RunNow checks one server synchronously, outside the periodic cycle.
// Backoff is not applied but the one-active-run rule is.
func (s *Scheduler) RunNow(ctx context.Context, serverID string) (reconciler.Outcome, error) {
	server, err := s.servers.GetServer(serverID)
	if err != nil {
		return reconciler.Outcome{}, err
	}

	s.mu.Lock()
	if s.active[serverID] {
		s.mu.Unlock()
		return reconciler.Outcome{}, fmt.Errorf("%s: %w", serverID, ErrRunActive)
	}
	s.active[serverID] = true
	s.mu.Unlock()

	return s.execute(ctx, server), nil
}

// Active reports whether a check for serverID is running
func (s *Scheduler) Active(serverID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[serverID]
}

func (s *Scheduler) execute(ctx context.Context, server *types.Server) reconciler.Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()
	defer s.release(server.ID, true)

	out := s.checker.Check(ctx, server)
	s.publish(server, out)
	return out
}

func (s *Scheduler) publish(server *types.Server, out reconciler.Outcome) {
	if s.cfg.Events == nil {
		return
	}

	event := &events.Event{
		ServerID: server.ID,
		TeamID:   server.TeamID,
		Message:  out.Message,
		Metadata: map[string]string{
			"run_id":   out.RunID,
			"result":   string(out.Result),
			"duration": out.Duration.String(),
		},
	}
	switch out.Result {
	case reconciler.ResultFailed:
		event.Type = events.EventServerCheckFailed
		if out.Err != nil {
			event.Message = out.Err.Error()
		}
	case reconciler.ResultNotReachable:
		event.Type = events.EventServerUnreachable
	default:
		event.Type = events.EventServerCheckCompleted
	}
	s.cfg.Events.Publish(event)
}

// acquire marks serverID active, or returns why it cannot run now
func (s *Scheduler) acquire(serverID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[serverID] {
		return "active"
	}
	if until, ok := s.eligible[serverID]; ok && s.now().Before(until) {
		return "backoff"
	}
	s.active[serverID] = true
	return ""
}

func (s *Scheduler) release(serverID string, ran bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, serverID)
	if ran && s.cfg.Backoff > 0 {
		s.eligible[serverID] = s.now().Add(s.cfg.Backoff)
	}
}
