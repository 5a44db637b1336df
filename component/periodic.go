package component

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/flowengine/logger"
)

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// Periodic runs a Task on a fixed interval between Start and Stop. A run
// that fails is logged and retried on the next tick; after maxFailures
// consecutive failures the component reports itself degraded.
type Periodic struct {
	name        string
	interval    time.Duration
	task        Task
	log         *logger.Logger
	maxFailures int

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	lastRun  time.Time
	lastErr  error
	failures int
	runs     int
}

var (
	_ Component   = (*Periodic)(nil)
	_ Describable = (*Periodic)(nil)
)

// NewPeriodic creates a periodic component. The first run happens one
// interval after Start.
func NewPeriodic(name string, interval time.Duration, task Task, log *logger.Logger) *Periodic {
	return &Periodic{
		name:        name,
		interval:    interval,
		task:        task,
		log:         log.WithComponent(name),
		maxFailures: 3,
	}
}

func (p *Periodic) Name() string { return p.name }

// Start launches the loop. It returns immediately.
func (p *Periodic) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("%s: interval must be positive (got: %s)", p.name, p.interval)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return.
func (p *Periodic) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: stop: %w", p.name, ctx.Err())
	}
}

// RunOnce executes the task immediately and records the outcome.
func (p *Periodic) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := p.task(ctx)

	p.mu.Lock()
	p.lastRun = start
	p.lastErr = err
	p.runs++
	if err != nil {
		p.failures++
	} else {
		p.failures = 0
	}
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("Periodic run failed", logger.ErrorFields("run", err))
	} else {
		p.log.Debug("Periodic run finished", logger.DurationFields("run", time.Since(start)))
	}
	return err
}

func (p *Periodic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.RunOnce(ctx)
		}
	}
}

// Health is degraded after repeated failures; the loop keeps running.
func (p *Periodic) Health(ctx context.Context) Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := Health{Name: p.name, Status: StatusHealthy}
	if p.failures >= p.maxFailures {
		h.Status = StatusDegraded
		h.Message = fmt.Sprintf("%d consecutive failures: %v", p.failures, p.lastErr)
	}
	return h
}

// Describe implements Describable.
func (p *Periodic) Describe() Description {
	return Description{Name: p.name, Type: "worker", Details: "every " + p.interval.String()}
}
