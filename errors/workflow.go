package errors

import (
	"fmt"
	"strings"
)

// InvalidGraph reports a structural rule the workflow graph breaks.
func InvalidGraph(reason string) *AppError {
	return New(ErrCodeInvalidGraph, reason)
}

// CycleDetected reports a graph whose nodes cannot all be ordered: only
// sorted of total nodes were reached before the queue drained.
func CycleDetected(sorted, total int) *AppError {
	return New(ErrCodeCycleDetected, fmt.Sprintf("Workflow contains a cycle: ordered %d of %d nodes.", sorted, total)).
		WithDetails(map[string]any{"sorted": sorted, "total": total})
}

func DanglingReference(nodeID string) *AppError {
	return New(ErrCodeDanglingReference, fmt.Sprintf("Edge references unknown node %q.", nodeID)).
		WithDetail("node_id", nodeID)
}

func NoStartNode() *AppError {
	return New(ErrCodeNoStartNode, "Workflow has no start node.")
}

func UnknownNodeType(nodeType string) *AppError {
	return New(ErrCodeUnknownNodeType, fmt.Sprintf("Unknown node type %q.", nodeType)).
		WithDetail("node_type", nodeType)
}

// NodeTypeInactive reports a node type whose pricing record is switched off.
func NodeTypeInactive(nodeType string) *AppError {
	return New(ErrCodeNodeTypeInactive, fmt.Sprintf("Node type %q is not active.", nodeType)).
		WithDetail("node_type", nodeType)
}

// NodeConfigInvalid reports every problem a node found in its own config.
func NodeConfigInvalid(nodeID string, problems []string) *AppError {
	return New(ErrCodeNodeConfigInvalid, fmt.Sprintf("Node %q is misconfigured: %s", nodeID, strings.Join(problems, "; "))).
		WithDetails(map[string]any{"node_id": nodeID, "problems": problems})
}

func WorkflowNotPublished(workflowID string) *AppError {
	return New(ErrCodeWorkflowNotPublished, "Workflow is not published.").
		WithDetail("workflow_id", workflowID)
}

// InsufficientCredits reports a balance that cannot cover required.
func InsufficientCredits(required int64) *AppError {
	return New(ErrCodeInsufficientCredits, fmt.Sprintf("Insufficient credits: %d required.", required)).
		WithDetail("required", required)
}

// NodeExecutionFailed wraps the error a node returned. The cause text is part
// of the message because it is what the execution record stores.
func NodeExecutionFailed(nodeID string, cause error) *AppError {
	msg := fmt.Sprintf("Node %q failed.", nodeID)
	if cause != nil {
		msg = fmt.Sprintf("Node %q failed: %v", nodeID, cause)
	}
	return New(ErrCodeNodeExecutionFailed, msg).WithDetail("node_id", nodeID).WithCause(cause)
}

func ExecutionTimeout(executionID string) *AppError {
	return New(ErrCodeExecutionTimeout, "Workflow execution timed out.").
		WithDetail("execution_id", executionID)
}

func ExecutionCancelled(executionID string) *AppError {
	return New(ErrCodeExecutionCancelled, "Workflow execution was cancelled.").
		WithDetail("execution_id", executionID)
}
