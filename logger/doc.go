// Package logger provides structured logging for the workflow engine
// using zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers, and context propagation of request, user and execution
// identifiers so that every line written during a workflow run can be
// correlated.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.GetGlobalLogger().WithComponent("engine")
//	log.Info("execution started", logger.Fields(logger.FieldExecutionID, id))
package logger
