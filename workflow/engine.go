package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/events"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/observability"
)

// Dependencies are the collaborators every engine needs. Users may be nil,
// in which case only owners can run their workflows.
type Dependencies struct {
	Workflows  WorkflowStore
	Executions ExecutionRecorder
	Ledger     Ledger
	NodeTypes  NodeTypeConfigSource
	Users      UserDirectory
	Registry   *Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithReservations records every pre-deduction durably so Sweeper can
// recover it after a crash.
func WithReservations(store ReservationStore) Option {
	return func(e *Engine) { e.reservations = store }
}

// WithPublisher sends execution lifecycle events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMetrics records execution, node and credit metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine runs workflows: it validates and schedules the graph, reserves
// credits, executes nodes in order, and settles or compensates.
type Engine struct {
	cfg          Config
	deps         Dependencies
	reservations ReservationStore
	publisher    events.Publisher
	log          *logger.Logger
	clock        Clock
	metrics      *observability.Metrics
	credits      *CreditCoordinator
}

// NewEngine creates an engine.
func NewEngine(cfg Config, deps Dependencies, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Workflows == nil:
		return nil, fmt.Errorf("workflow store is required")
	case deps.Executions == nil:
		return nil, fmt.Errorf("execution recorder is required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	case deps.NodeTypes == nil:
		return nil, fmt.Errorf("node type config source is required")
	case deps.Registry == nil:
		return nil, fmt.Errorf("node registry is required")
	}

	e := &Engine{
		cfg:       cfg,
		deps:      deps,
		publisher: events.Nop,
		log:       logger.NewNop(),
		clock:     SystemClock,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("workflow.engine")
	e.credits = NewCreditCoordinator(deps.Ledger, deps.NodeTypes, e.reservations, e.clock, e.metrics, e.log)
	return e, nil
}

// plan is everything decided before credits are touched.
type plan struct {
	workflow *Workflow
	order    []string
	nodes    map[string]Node
	estimate Estimate
}

// Execute runs workflowID for userID with input.
//
// Authorization, graph, node configuration and pricing problems are
// reported before any credit is debited or record written. Once credits
// are reserved, every failure marks the execution failed, refunds the
// whole reservation and is returned to the caller.
func (e *Engine) Execute(ctx context.Context, workflowID, userID string, input map[string]any) (*ExecutionResult, error) {
	start := e.clock.Now()
	log := e.log.WithFields(logger.Fields(
		logger.FieldWorkflowID, workflowID,
		logger.FieldUserID, userID,
	))

	ctx, span := observability.StartSpan(ctx, observability.SpanWorkflowExecute)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrWorkflowID, workflowID),
		attribute.String(observability.AttrUserID, userID),
	)

	p, err := e.prepare(ctx, workflowID, userID)
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Warn("Workflow rejected", logger.Fields(logger.FieldError, err.Error()))
		return nil, err
	}

	hold, err := e.credits.Reserve(ctx, userID, workflowID, p.estimate.Total)
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Warn("Credit reservation failed", logger.Fields(
			logger.FieldCredits, p.estimate.Total,
			logger.FieldError, err.Error(),
		))
		return nil, err
	}

	if input == nil {
		input = map[string]any{}
	}
	exec := &Execution{
		ID:               uuid.NewString(),
		WorkflowID:       workflowID,
		UserID:           userID,
		Status:           StatusRunning,
		Input:            input,
		EstimatedCredits: hold.Reserved(),
		StartedAt:        start,
	}
	if err := e.deps.Executions.CreateExecution(ctx, exec); err != nil {
		appErr := errors.Wrap(err)
		if _, cErr := hold.Compensate(context.WithoutCancel(ctx), appErr.Message); cErr != nil {
			log.Error("Compensation failed", logger.ErrorFields("compensate", cErr))
		}
		observability.SetSpanError(ctx, appErr)
		return nil, appErr
	}

	span.SetAttributes(attribute.String(observability.AttrExecutionID, exec.ID))
	log = log.WithFields(logger.Fields(logger.FieldExecutionID, exec.ID))
	e.metrics.RecordExecutionStart(ctx)
	log.Info("Execution started", logger.Fields(
		"nodes", len(p.order),
		"estimated", hold.Reserved(),
	))
	e.publish(ctx, exec, events.ExecutionStarted, &events.Credits{Estimated: hold.Reserved()}, "")

	if err := hold.Attach(ctx, exec.ID); err != nil {
		return nil, e.fail(ctx, exec, hold, err, log)
	}

	last, err := e.run(ctx, exec, p, hold, start)
	if err == nil {
		// A cancel during the last node is compensated like any other.
		err = e.checkCancelled(ctx, exec.ID)
	}
	if err != nil {
		return nil, e.fail(ctx, exec, hold, err, log)
	}

	output := NormalizeOutput(last)
	refunded, err := hold.Settle(ctx)
	if err != nil {
		return nil, e.fail(ctx, exec, hold, err, log)
	}

	completed := e.clock.Now()
	updated, err := e.deps.Executions.UpdateExecution(ctx, exec.ID, ExecutionUpdate{
		Status:      StatusSuccess,
		Output:      output,
		CreditsUsed: hold.Used(),
		CompletedAt: completed,
	})
	if err != nil {
		return nil, e.fail(ctx, exec, hold, err, log)
	}
	credits := Credits{Estimated: hold.Reserved(), Used: hold.Used(), Refunded: refunded}
	duration := completed.Sub(start)

	if !updated {
		// Finalised elsewhere after the last node ran; credits stay settled.
		err := e.finalisedElsewhere(ctx, exec.ID)
		log.Warn("Execution finalised before success was recorded", logger.Fields(logger.FieldError, err.Error()))
		e.metrics.RecordExecutionEnd(ctx, string(StatusCancelled), duration)
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	e.metrics.RecordExecutionEnd(ctx, string(StatusSuccess), duration)
	e.publish(ctx, exec, events.ExecutionSucceeded, &events.Credits{
		Estimated: credits.Estimated, Used: credits.Used, Refunded: credits.Refunded,
	}, "")
	log.Info("Execution succeeded", logger.Fields(
		"used", credits.Used,
		"refunded", credits.Refunded,
		logger.FieldDuration, duration.Milliseconds(),
	))

	return &ExecutionResult{
		Success:     true,
		ExecutionID: exec.ID,
		Output:      output,
		Credits:     credits,
		Duration:    duration,
	}, nil
}

func (e *Engine) prepare(ctx context.Context, workflowID, userID string) (*plan, error) {
	wf, err := e.deps.Workflows.FindWorkflow(ctx, workflowID)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	if wf == nil {
		return nil, errors.NotFound("workflow", workflowID)
	}
	if err := e.authorize(ctx, wf.OwnerID, userID); err != nil {
		return nil, err
	}
	if !wf.Published {
		return nil, errors.WorkflowNotPublished(workflowID)
	}

	g := &wf.Graph
	if err := dag.Validate(g, e.cfg.rules()); err != nil {
		return nil, err
	}
	order, err := dag.Sort(g)
	if err != nil {
		return nil, err
	}
	nodes, err := e.instantiate(g)
	if err != nil {
		return nil, err
	}
	est, err := e.credits.Estimate(ctx, g)
	if err != nil {
		return nil, err
	}
	return &plan{workflow: wf, order: order, nodes: nodes, estimate: est}, nil
}

// instantiate builds and validates every node up front so configuration
// problems surface before credits are reserved.
func (e *Engine) instantiate(g *dag.Graph) (map[string]Node, error) {
	nodes := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		inst, err := e.deps.Registry.Create(n)
		if err != nil {
			return nil, errors.NodeConfigInvalid(n.ID, []string{err.Error()})
		}
		if inst == nil {
			return nil, errors.UnknownNodeType(n.Type).WithDetail("node_id", n.ID)
		}
		if problems := inst.Validate(); len(problems) > 0 {
			return nil, errors.NodeConfigInvalid(n.ID, problems)
		}
		inst = WithLogging(inst, n, e.log)
		inst = WithNodeMetrics(inst, n.Type, e.metrics)
		nodes[n.ID] = WithTracing(inst, n)
	}
	return nodes, nil
}

func (e *Engine) run(ctx context.Context, exec *Execution, p *plan, hold *Hold, start time.Time) (any, error) {
	g := &p.workflow.Graph
	ec := NewExecutionContext(exec.ID, exec.WorkflowID, exec.Input)

	var last any
	for _, id := range p.order {
		if e.clock.Now().Sub(start) > e.cfg.Timeout {
			return nil, errors.ExecutionTimeout(exec.ID)
		}
		if err := e.checkCancelled(ctx, exec.ID); err != nil {
			return nil, err
		}

		node, _ := g.Node(id)
		var upstream any
		if src, ok := dag.FirstPredecessor(g, id); ok {
			upstream, _ = ec.Variable(src)
		}
		ec.setUpstream(upstream)

		res, err := e.runNode(ctx, exec, ec, node, p.nodes[id], p.estimate.Config(node.Type))
		if err != nil {
			return nil, err
		}
		hold.Meter(res.CreditsUsed)
		last = res.Output
	}
	return last, nil
}

func (e *Engine) runNode(ctx context.Context, exec *Execution, ec *ExecutionContext, node dag.Node, inst Node, cfg NodeTypeConfig) (*NodeResult, error) {
	started := e.clock.Now()
	ne := &NodeExecution{
		ID:          uuid.NewString(),
		ExecutionID: exec.ID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		Status:      StatusRunning,
		Input:       ec.Variables(),
		StartedAt:   started,
	}
	if err := e.deps.Executions.CreateNodeExecution(ctx, ne); err != nil {
		return nil, errors.Wrap(err)
	}

	res, err := inst.Execute(ctx, ec, exec.UserID, cfg)
	if err == nil && res != nil && res.CreditsUsed < 0 {
		err = fmt.Errorf("reported negative credits %d", res.CreditsUsed)
	}
	completed := e.clock.Now()

	if err != nil {
		nodeErr := errors.NodeExecutionFailed(node.ID, err)
		if _, uErr := e.deps.Executions.UpdateNodeExecution(context.WithoutCancel(ctx), ne.ID, NodeExecutionUpdate{
			Status:       StatusFailed,
			ErrorMessage: err.Error(),
			Duration:     completed.Sub(started),
			CompletedAt:  completed,
		}); uErr != nil {
			e.log.Error("Recording node failure failed", logger.Fields(
				logger.FieldNodeID, node.ID,
				logger.FieldError, uErr.Error(),
			))
		}
		return nil, nodeErr
	}
	if res == nil {
		res = &NodeResult{}
	}

	if err := ec.setOutput(node.ID, res.Output); err != nil {
		return nil, errors.Internal(err)
	}
	if _, err := e.deps.Executions.UpdateNodeExecution(ctx, ne.ID, NodeExecutionUpdate{
		Status:      StatusSuccess,
		Output:      res.Output,
		CreditsUsed: res.CreditsUsed,
		Duration:    completed.Sub(started),
		CompletedAt: completed,
	}); err != nil {
		return nil, errors.Wrap(err)
	}
	return res, nil
}

// checkCancelled re-reads the execution so a cancel request stops the run
// at the next node boundary.
func (e *Engine) checkCancelled(ctx context.Context, executionID string) error {
	current, err := e.deps.Executions.FindExecution(ctx, executionID)
	if err != nil {
		return errors.Wrap(err)
	}
	if current == nil {
		return errors.NotFound("execution", executionID)
	}
	switch current.Status {
	case StatusRunning:
		return nil
	case StatusCancelled:
		return errors.ExecutionCancelled(executionID)
	default:
		return errors.ExecutionTimeout(executionID)
	}
}

// finalisedElsewhere explains a terminal update that matched no running row.
func (e *Engine) finalisedElsewhere(ctx context.Context, executionID string) error {
	if err := e.checkCancelled(ctx, executionID); err != nil {
		return err
	}
	return errors.Conflict("Execution was finalised concurrently.")
}

// fail records the failure, refunds the reservation and returns the error
// for the caller. Cleanup ignores cancellation of ctx.
func (e *Engine) fail(ctx context.Context, exec *Execution, hold *Hold, cause error, log *logger.Logger) error {
	appErr := errors.Wrap(cause)
	cleanup := context.WithoutCancel(ctx)
	observability.SetSpanError(ctx, appErr)

	status := StatusFailed
	eventType := events.ExecutionFailed
	if appErr.Code == errors.ErrCodeExecutionCancelled {
		status = StatusCancelled
		eventType = events.ExecutionCancelled
	} else {
		if _, err := e.deps.Executions.UpdateExecution(cleanup, exec.ID, ExecutionUpdate{
			Status:       StatusFailed,
			Output:       map[string]any{"error": appErr.Message},
			CreditsUsed:  hold.Used(),
			ErrorMessage: appErr.Message,
			CompletedAt:  e.clock.Now(),
		}); err != nil {
			log.Error("Recording execution failure failed", logger.ErrorFields("update_execution", err))
		}
	}

	refunded, err := hold.Compensate(cleanup, appErr.Message)
	if err != nil {
		log.Error("Compensation failed", logger.ErrorFields("compensate", err))
	}

	e.metrics.RecordExecutionEnd(cleanup, string(status), e.clock.Now().Sub(exec.StartedAt))
	e.metrics.RecordError(cleanup, string(errors.KindOf(appErr)), "workflow.engine")
	e.publish(cleanup, exec, eventType, &events.Credits{
		Estimated: hold.Reserved(), Used: hold.Used(), Refunded: refunded,
	}, appErr.Message)
	log.Warn("Execution stopped", logger.Fields(
		logger.FieldStatus, string(status),
		logger.FieldError, appErr.Message,
		"refunded", refunded,
	))
	return appErr
}

// Cancel moves a running execution to cancelled. The engine running it
// notices at the next node boundary and refunds the reservation; a node
// already in flight is not interrupted.
func (e *Engine) Cancel(ctx context.Context, executionID, userID string) (*CancelResult, error) {
	exec, err := e.deps.Executions.FindExecution(ctx, executionID)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	if exec == nil {
		return nil, errors.NotFound("execution", executionID)
	}
	if err := e.authorize(ctx, exec.UserID, userID); err != nil {
		return nil, err
	}
	if exec.Status != StatusRunning {
		return nil, errors.Conflict("Can only cancel a running execution.").WithDetail("status", string(exec.Status))
	}

	updated, err := e.deps.Executions.UpdateExecution(ctx, executionID, ExecutionUpdate{
		Status:       StatusCancelled,
		ErrorMessage: "Cancelled by user",
		CreditsUsed:  exec.CreditsUsed,
		CompletedAt:  e.clock.Now(),
	})
	if err != nil {
		return nil, errors.Wrap(err)
	}
	if !updated {
		return nil, errors.Conflict("Can only cancel a running execution.")
	}

	e.log.Info("Execution cancelled", logger.Fields(
		logger.FieldExecutionID, executionID,
		logger.FieldUserID, userID,
	))
	e.publish(ctx, exec, events.ExecutionCancelled, nil, "")
	return &CancelResult{Success: true, Message: "Execution cancelled."}, nil
}

// GetExecution returns an execution with its node executions.
func (e *Engine) GetExecution(ctx context.Context, executionID, userID string) (*Execution, error) {
	exec, err := e.deps.Executions.FindExecution(ctx, executionID)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	if exec == nil {
		return nil, errors.NotFound("execution", executionID)
	}
	if err := e.authorize(ctx, exec.UserID, userID); err != nil {
		return nil, err
	}
	nodes, err := e.deps.Executions.ListNodeExecutions(ctx, executionID)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	exec.Nodes = nodes
	return exec, nil
}

// Sweeper returns a sweeper sharing the engine's stores, or nil when no
// ReservationStore is configured.
func (e *Engine) Sweeper() *ReservationSweeper {
	if e.reservations == nil {
		return nil
	}
	return &ReservationSweeper{
		cfg:          e.cfg,
		reservations: e.reservations,
		executions:   e.deps.Executions,
		ledger:       e.deps.Ledger,
		publisher:    e.publisher,
		clock:        e.clock,
		metrics:      e.metrics,
		log:          e.log.WithComponent("workflow.sweeper"),
	}
}

func (e *Engine) authorize(ctx context.Context, ownerID, userID string) error {
	if userID == "" {
		return errors.Unauthorized("Authentication required.")
	}
	if ownerID == userID {
		return nil
	}
	if e.deps.Users != nil {
		role, err := e.deps.Users.UserRole(ctx, userID)
		if err != nil {
			return errors.Wrap(err)
		}
		if e.cfg.elevated(role) {
			return nil
		}
	}
	return errors.Forbidden("You do not have access to this workflow.")
}

func (e *Engine) publish(ctx context.Context, exec *Execution, t events.Type, credits *events.Credits, msg string) {
	status := StatusRunning
	switch t {
	case events.ExecutionSucceeded:
		status = StatusSuccess
	case events.ExecutionFailed:
		status = StatusFailed
	case events.ExecutionCancelled:
		status = StatusCancelled
	}
	err := e.publisher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        t,
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		UserID:      exec.UserID,
		Status:      string(status),
		Credits:     credits,
		Error:       msg,
		Timestamp:   e.clock.Now(),
	})
	if err != nil {
		e.log.Warn("Event publish failed", logger.Fields(
			logger.FieldExecutionID, exec.ID,
			"event_type", string(t),
			logger.FieldError, err.Error(),
		))
	}
}
