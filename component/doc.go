// Package component defines lifecycle-managed infrastructure for workflowd.
//
// A Component is started, health-checked and stopped by a Registry in
// registration order (and stopped in reverse). Components may also be
// Describable (one line in the startup summary) or RouteProviders.
//
// Periodic adapts a recurring task, such as the reservation sweep, into a
// Component.
package component
