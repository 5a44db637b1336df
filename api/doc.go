// Package api exposes the execution engine over HTTP.
//
//	POST /api/v1/workflows/:id/execute   run a workflow synchronously
//	POST /api/v1/executions/:id/cancel   cancel a running execution
//	GET  /api/v1/executions/:id          one execution with its node records
//	GET  /api/v1/executions              the caller's executions, paged and filtered
//	GET  /api/v1/events                  Server-Sent Events of the caller's runs (WithEventStream)
//
// Every route requires an authenticated caller (server/middleware.Authenticate).
// Errors are written with server.RespondWithError, so engine error codes
// reach clients unchanged.
package api
