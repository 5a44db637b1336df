package llm

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/resilience"
)

// ResilientProvider wraps a Provider with a concurrency cap and a circuit
// breaker. Each Complete is a single upstream call; failures are returned
// as they are.
type ResilientProvider struct {
	inner    Provider
	breaker  *resilience.CircuitBreaker
	bulkhead *resilience.Bulkhead
}

var _ Provider = (*ResilientProvider)(nil)

// NewResilientProvider guards inner according to cfg. Zero fields take the
// defaults of Config.ApplyDefaults.
func NewResilientProvider(inner Provider, cfg ResilienceConfig, log *logger.Logger) *ResilientProvider {
	defaults := Config{Resilience: cfg}
	defaults.ApplyDefaults()
	cfg = defaults.Resilience
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("llm." + inner.Name())

	breaker := resilience.DefaultCircuitBreakerConfig(inner.Name())
	breaker.MaxFailures = cfg.FailureThreshold
	breaker.Cooldown = cfg.Cooldown
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Circuit breaker state changed", logger.Fields("provider", name, "from", from.String(), "to", to.String()))
	}

	return &ResilientProvider{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(breaker),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          inner.Name(),
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.MaxWait,
		}),
	}
}

func (p *ResilientProvider) Name() string { return p.inner.Name() }

// IsAvailable is false while the circuit is open.
func (p *ResilientProvider) IsAvailable(ctx context.Context) bool {
	if p.breaker.State() == resilience.StateOpen {
		return false
	}
	return p.inner.IsAvailable(ctx)
}

// Complete runs the completion through the bulkhead and the breaker.
func (p *ResilientProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := resilience.ExecuteWithResult(p.bulkhead, ctx, func() (*CompletionResponse, error) {
		return resilience.CallWithResult(p.breaker, func() (*CompletionResponse, error) {
			return p.inner.Complete(ctx, req)
		})
	})
	switch {
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return nil, errors.ServiceUnavailable(p.inner.Name()).WithCause(err)
	case stderrors.Is(err, resilience.ErrBulkheadFull), stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return nil, errors.ServiceUnavailable(p.inner.Name()).WithCause(err).
			WithDetail("reason", "too many concurrent completions")
	}
	return resp, err
}

// BreakerState reports the circuit state.
func (p *ResilientProvider) BreakerState() resilience.State {
	return p.breaker.State()
}
