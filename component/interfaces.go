package component

import "context"

// Component is a lifecycle-managed piece of infrastructure: a database, a
// cache, a broker, the HTTP server or a background loop.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// severity orders statuses; unknown values count as unhealthy.
func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Overall is the worst status among hs. No components means healthy.
func Overall(hs []Health) HealthStatus {
	worst := StatusHealthy
	for _, h := range hs {
		if h.Status.severity() > worst.severity() {
			worst = h.Status
		}
	}
	if worst.severity() == 2 {
		return StatusUnhealthy
	}
	return worst
}

// Describable components get a line in the startup summary.
type Describable interface {
	Describe() Description
}

// Description is one line of the startup summary, e.g.
// {Type: "database", Details: "driver=sqlite pool=1/1"}. An empty Name falls
// back to the component's Name(); Port is 0 when nothing listens.
type Description struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// RouteProvider is implemented by components that serve HTTP.
type RouteProvider interface {
	Routes() []Route
}

type Route struct {
	Method  string
	Path    string
	Handler string
}
