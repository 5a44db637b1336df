package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/observability"
)

// WithTracing wraps n so each execution runs in a "workflow.node" span
// tagged with the node's id and type.
func WithTracing(n Node, node dag.Node) Node {
	return &tracingNode{inner: n, node: node}
}

type tracingNode struct {
	inner Node
	node  dag.Node
}

func (n *tracingNode) Validate() []string { return n.inner.Validate() }

func (n *tracingNode) Execute(ctx context.Context, ec *ExecutionContext, userID string, cfg NodeTypeConfig) (*NodeResult, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanWorkflowNode)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrNodeID, n.node.ID),
		attribute.String(observability.AttrNodeType, n.node.Type),
		attribute.String(observability.AttrExecutionID, ec.ExecutionID()),
	)

	res, err := n.inner.Execute(ctx, ec, userID, cfg)
	if err != nil {
		observability.SetSpanError(ctx, err)
	} else if res != nil {
		span.SetAttributes(attribute.Int64(observability.AttrCredits, res.CreditsUsed))
	}
	return res, err
}

// WithNodeMetrics wraps n so each execution is counted by type and status.
func WithNodeMetrics(n Node, nodeType string, metrics *observability.Metrics) Node {
	if metrics == nil {
		return n
	}
	return &metricsNode{inner: n, nodeType: nodeType, metrics: metrics}
}

type metricsNode struct {
	inner    Node
	nodeType string
	metrics  *observability.Metrics
}

func (n *metricsNode) Validate() []string { return n.inner.Validate() }

func (n *metricsNode) Execute(ctx context.Context, ec *ExecutionContext, userID string, cfg NodeTypeConfig) (*NodeResult, error) {
	start := time.Now()
	res, err := n.inner.Execute(ctx, ec, userID, cfg)

	status := string(StatusSuccess)
	if err != nil {
		status = string(StatusFailed)
		n.metrics.RecordError(ctx, "execute", n.nodeType)
	}
	n.metrics.RecordNode(ctx, n.nodeType, status, time.Since(start))
	return res, err
}

// WithLogging wraps n so each execution logs its outcome and duration.
func WithLogging(n Node, node dag.Node, log *logger.Logger) Node {
	return &loggingNode{inner: n, node: node, log: log}
}

type loggingNode struct {
	inner Node
	node  dag.Node
	log   *logger.Logger
}

func (n *loggingNode) Validate() []string { return n.inner.Validate() }

func (n *loggingNode) Execute(ctx context.Context, ec *ExecutionContext, userID string, cfg NodeTypeConfig) (*NodeResult, error) {
	start := time.Now()
	res, err := n.inner.Execute(ctx, ec, userID, cfg)

	fields := logger.Fields(
		logger.FieldExecutionID, ec.ExecutionID(),
		logger.FieldNodeID, n.node.ID,
		logger.FieldNodeType, n.node.Type,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		n.log.Error("Node failed", fields)
		return res, err
	}
	if res != nil {
		fields[logger.FieldCredits] = res.CreditsUsed
	}
	n.log.Debug("Node completed", fields)
	return res, err
}
