// Package server provides the HTTP server of workflowd: Gin routes on a
// ServeMux, served over HTTP/1.1 and h2c, with component lifecycle,
// operational endpoints and the standard JSON response envelope.
//
// Server-wide middleware (server/middleware) is applied around the mux:
// recovery, request id, CORS, body-size limit and access logging.
// Route-level middleware covers authentication and per-user rate limits.
//
// Operational endpoints (server/endpoint): /health, /alive, /ready, /info
// and /metrics.
package server
