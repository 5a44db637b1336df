package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowengine/auth"
	"github.com/kbukum/flowengine/database/query"
	apperrors "github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/observability"
	"github.com/kbukum/flowengine/repository"
	"github.com/kbukum/flowengine/server"
	"github.com/kbukum/flowengine/server/middleware"
	"github.com/kbukum/flowengine/sse"
	"github.com/kbukum/flowengine/validation"
	"github.com/kbukum/flowengine/workflow"
)

// Executor is the part of workflow.Engine the API drives.
type Executor interface {
	Execute(ctx context.Context, workflowID, userID string, input map[string]any) (*workflow.ExecutionResult, error)
	Cancel(ctx context.Context, executionID, userID string) (*workflow.CancelResult, error)
	GetExecution(ctx context.Context, executionID, userID string) (*workflow.Execution, error)
}

// ExecutionLister pages through a user's executions.
type ExecutionLister interface {
	ListExecutions(ctx context.Context, userID string, params query.Params) (*query.Result[workflow.Execution], error)
}

var (
	_ Executor        = (*workflow.Engine)(nil)
	_ ExecutionLister = (*repository.ExecutionRepository)(nil)
)

// Config tunes the API routes.
type Config struct {
	// ExecutionsPerMinute limits execute calls per user (default: 30).
	ExecutionsPerMinute int `yaml:"executions_per_minute" mapstructure:"executions_per_minute"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ExecutionsPerMinute == 0 {
		c.ExecutionsPerMinute = 30
	}
}

// Handler serves the execution API.
type Handler struct {
	engine     Executor
	executions ExecutionLister
	cfg        Config
	log        *logger.Logger
	stream     *sse.Hub
}

// NewHandler creates a Handler. executions may be nil, in which case the
// list route is not registered.
func NewHandler(engine Executor, executions ExecutionLister, cfg Config, log *logger.Logger) *Handler {
	cfg.ApplyDefaults()
	return &Handler{
		engine:     engine,
		executions: executions,
		cfg:        cfg,
		log:        log.WithComponent("api"),
	}
}

// WithEventStream enables GET /api/v1/events, which streams the caller's
// execution events from hub.
func (h *Handler) WithEventStream(hub *sse.Hub) *Handler {
	h.stream = hub
	return h
}

// Register mounts the routes under /api/v1 behind authn.
func (h *Handler) Register(r gin.IRouter, authn gin.HandlerFunc) {
	v1 := r.Group("/api/v1", authn)
	v1.POST("/workflows/:id/execute",
		middleware.RateLimit(middleware.RateLimitConfig{RequestsPerMinute: h.cfg.ExecutionsPerMinute}),
		h.Execute)
	v1.POST("/executions/:id/cancel", h.Cancel)
	v1.GET("/executions/:id", h.GetExecution)
	if h.executions != nil {
		v1.GET("/executions", h.ListExecutions)
	}
	if h.stream != nil {
		v1.GET("/events", h.StreamEvents)
	}
}

// ExecuteRequest is the body of an execute call.
type ExecuteRequest struct {
	Input map[string]any `json:"input"`
}

type pathID struct {
	ID string `validate:"required,max=128"`
}

// Execute runs a workflow and returns its result. The run is detached from
// the request's cancellation so a client disconnect cannot interrupt credit
// settlement; the engine's own time budget still applies.
func (h *Handler) Execute(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	workflowID, ok := h.pathID(c)
	if !ok {
		return
	}

	annotate(c, observability.AttrWorkflowID, workflowID)

	var req ExecuteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			server.RespondWithError(c, apperrors.InvalidInput("body", "Request body must be a JSON object with an optional \"input\" object."))
			return
		}
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	ctx := context.WithoutCancel(c.Request.Context())
	h.log.WithContext(ctx).Debug("Execute requested", logger.Fields(
		logger.FieldWorkflowID, workflowID,
		"input_keys", len(req.Input),
	))
	res, err := h.engine.Execute(ctx, workflowID, id.UserID, req.Input)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	annotate(c, observability.AttrExecutionID, res.ExecutionID)
	server.RespondOK(c, res)
}

// Cancel marks a running execution as cancelled.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	executionID, ok := h.pathID(c)
	if !ok {
		return
	}
	annotate(c, observability.AttrExecutionID, executionID)
	res, err := h.engine.Cancel(c.Request.Context(), executionID, id.UserID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// GetExecution returns one execution with its node executions.
func (h *Handler) GetExecution(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	executionID, ok := h.pathID(c)
	if !ok {
		return
	}
	annotate(c, observability.AttrExecutionID, executionID)
	exec, err := h.engine.GetExecution(c.Request.Context(), executionID, id.UserID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, exec)
}

// ListExecutions pages through the caller's executions. It accepts page,
// page_size, sort_by, order and the status, workflow_id and started_at
// filters (for example status=eq.failed).
func (h *Handler) ListExecutions(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	params := query.Parse(c.Request.URL.Query(), repository.ExecutionListConfig)
	page, err := h.executions.ListExecutions(c.Request.Context(), id.UserID, params)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	meta := &server.Meta{
		Page:       page.Pagination.Page,
		PageSize:   page.Pagination.PageSize,
		Total:      page.Pagination.Total,
		TotalPages: page.Pagination.TotalPages,
	}
	if len(page.Facets) > 0 {
		meta.Facets = page.Facets
	}
	server.RespondOKWithMeta(c, page.Data, meta)
}

// StreamEvents holds the request open and forwards the lifecycle events of
// every execution the caller starts.
func (h *Handler) StreamEvents(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	h.log.Debug("Event stream opened", logger.Fields(logger.FieldUserID, id.UserID))
	h.stream.Serve(c.Writer, c.Request, sse.UserTopic(id.UserID))
}

// annotate tags the request span when tracing is on.
func annotate(c *gin.Context, key, value string) {
	observability.RequestFromContext(c.Request.Context()).Annotate(key, value)
}

func (h *Handler) caller(c *gin.Context) (*auth.Identity, bool) {
	id, err := auth.MustIdentity(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, apperrors.Unauthorized(""))
		return nil, false
	}
	annotate(c, observability.AttrUserID, id.UserID)
	return id, true
}

func (h *Handler) pathID(c *gin.Context) (string, bool) {
	p := pathID{ID: c.Param("id")}
	if err := validation.Validate(p); err != nil {
		server.RespondWithError(c, err)
		return "", false
	}
	return p.ID, true
}
