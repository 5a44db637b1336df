package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/flowengine/component"
)

// Summary prints what the process started with: infrastructure, routes and
// live component health.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	notes           []string
}

// NewSummary creates a summary for the named service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// AddNote adds a free-form line, e.g. "seeded 3 workflows".
func (s *Summary) AddNote(format string, args ...any) {
	s.notes = append(s.notes, fmt.Sprintf(format, args...))
}

// Display writes the summary to w, collecting descriptions, routes and
// health from registry.
func (s *Summary) Display(ctx context.Context, w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var infra []string
	var routes []component.Route
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			name := desc.Name
			if name == "" {
				name = c.Name()
			}
			line := fmt.Sprintf("%s [%s] %s", name, desc.Type, desc.Details)
			if desc.Port > 0 {
				line = fmt.Sprintf("%s (:%d)", line, desc.Port)
			}
			infra = append(infra, line)
		}
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}

	writeSection(w, "📊 Infrastructure", infra)

	routeLines := make([]string, len(routes))
	for i, r := range routes {
		routeLines[i] = fmt.Sprintf("%-6s %s → %s", r.Method, r.Path, r.Handler)
	}
	writeSection(w, fmt.Sprintf("🌐 Routes (%d)", len(routes)), routeLines)
	writeSection(w, "📝 Notes", s.notes)

	var health []string
	for _, h := range registry.HealthAll(ctx) {
		line := fmt.Sprintf("%s %s: %s", healthIcon(h.Status), h.Name, strings.ToLower(string(h.Status)))
		if h.Message != "" {
			line += " (" + h.Message + ")"
		}
		health = append(health, line)
	}
	writeSection(w, "🏥 Health", health)
	fmt.Fprintln(w)
}

func writeSection(w io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for i, l := range lines {
		prefix := "├──"
		if i == len(lines)-1 {
			prefix = "└──"
		}
		fmt.Fprintf(w, "   %s %s\n", prefix, l)
	}
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
