package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/hostkeeper/pkg/events"
	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PoolConfig sizes a Pool
type PoolConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per-task budget, 0 for none

	// Events receives task.failed events when set
	Events *events.Broker
}

type inflightKey struct {
	kind     Kind
	serverID string
}

// Pool runs submitted tasks on a fixed set of workers. A (kind, server)
// pair that is already queued or running is accepted and dropped.
type Pool struct {
	cfg      PoolConfig
	handlers map[Kind]Handler
	queue    chan Task

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
	started  bool
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewPool creates a stopped pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:      cfg,
		handlers: make(map[Kind]Handler),
		queue:    make(chan Task, cfg.QueueSize),
		inflight: make(map[inflightKey]struct{}),
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		logger:   log.WithComponent("tasks"),
	}
}

// Register installs the handler for kind. Must be called before Start.
func (p *Pool) Register(kind Kind, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = handler
}

// Start launches the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	metrics.UpdateComponent(metrics.ComponentTasks, true, fmt.Sprintf("%d workers", p.cfg.Workers))
	p.logger.Info().Int("workers", p.cfg.Workers).Int("queue_size", p.cfg.QueueSize).Msg("Task pool started")
}

// Stop cancels running tasks, abandons queued ones and waits for the workers
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancel()
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	metrics.UpdateComponent(metrics.ComponentTasks, false, "stopped")
	p.logger.Info().Msg("Task pool stopped")
}

// Submit queues task without waiting for it to run
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if _, ok := p.handlers[task.Kind]; !ok {
		return fmt.Errorf("no handler registered for task kind %q", task.Kind)
	}

	key := inflightKey{kind: task.Kind, serverID: task.ServerID}
	if _, busy := p.inflight[key]; busy {
		metrics.TasksDropped.WithLabelValues(string(task.Kind), "duplicate").Inc()
		p.logger.Debug().
			Str("task_kind", string(task.Kind)).
			Str("server_id", task.ServerID).
			Msg("Task already in flight, dropping duplicate")
		return nil
	}

	select {
	case p.queue <- task:
	default:
		metrics.TasksDropped.WithLabelValues(string(task.Kind), "queue_full").Inc()
		return ErrQueueFull
	}

	p.inflight[key] = struct{}{}
	metrics.TasksSubmitted.WithLabelValues(string(task.Kind)).Inc()
	return nil
}

// InFlight returns the number of queued or running tasks
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case task := <-p.queue:
			p.run(task)
		}
	}
}

func (p *Pool) run(task Task) {
	logger := log.WithTask(string(task.Kind), task.ID, task.ServerID)
	timer := metrics.NewTimer()

	defer func() {
		p.mu.Lock()
		delete(p.inflight, inflightKey{kind: task.Kind, serverID: task.ServerID})
		p.mu.Unlock()
		timer.ObserveDurationVec(metrics.TaskDuration, string(task.Kind))
	}()

	p.mu.Lock()
	handler := p.handlers[task.Kind]
	p.mu.Unlock()

	ctx := p.ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	if err := invoke(ctx, handler, task); err != nil {
		metrics.TasksFailed.WithLabelValues(string(task.Kind)).Inc()
		logger.Error().Err(err).Dur("duration", timer.Duration()).Msg("Task failed")
		if p.cfg.Events != nil {
			p.cfg.Events.Publish(&events.Event{
				Type:     events.EventTaskFailed,
				ServerID: task.ServerID,
				Message:  err.Error(),
				Metadata: map[string]string{"task_id": task.ID, "task_kind": string(task.Kind)},
			})
		}
		return
	}
	logger.Debug().Dur("duration", timer.Duration()).Msg("Task completed")
}

func invoke(ctx context.Context, handler Handler, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return handler(ctx, task)
}
