// Package resilience guards calls to collaborators that can fail or stall:
// a circuit breaker and a bulkhead for model providers, and Retry for
// start-up connections.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("ollama"))
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "ollama", MaxConcurrent: 8})
//	resp, err := resilience.ExecuteWithResult(bh, ctx, func() (*Response, error) {
//	    return resilience.CallWithResult(cb, func() (*Response, error) { return call(ctx) })
//	})
//
// The breaker only counts errors that report themselves retryable, so a bad
// request never opens the circuit.
package resilience
