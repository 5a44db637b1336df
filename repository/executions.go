package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kbukum/flowengine/database"
	"github.com/kbukum/flowengine/database/query"
	"github.com/kbukum/flowengine/workflow"
)

// ExecutionListConfig is what the executions list endpoint accepts.
var ExecutionListConfig = query.Config{
	AllowedFilters:    []string{"status", "workflow_id", "started_at"},
	AllowedSortFields: []string{"started_at", "credits_used", "status"},
	FacetFields:       []string{"status"},
	DefaultSort:       "started_at DESC",
}

// ExecutionRepository implements workflow.ExecutionRecorder.
type ExecutionRepository struct {
	db *database.DB
}

var _ workflow.ExecutionRecorder = (*ExecutionRepository)(nil)

// NewExecutionRepository creates an ExecutionRepository.
func NewExecutionRepository(db *database.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// CreateExecution inserts a new execution.
func (r *ExecutionRepository) CreateExecution(ctx context.Context, exec *workflow.Execution) error {
	m := &ExecutionModel{
		ID:               exec.ID,
		WorkflowID:       exec.WorkflowID,
		UserID:           exec.UserID,
		Status:           string(exec.Status),
		Input:            exec.Input,
		Output:           exec.Output,
		EstimatedCredits: exec.EstimatedCredits,
		CreditsUsed:      exec.CreditsUsed,
		ErrorMessage:     exec.ErrorMessage,
		StartedAt:        exec.StartedAt,
		CompletedAt:      exec.CompletedAt,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return database.FromDatabase(err, "execution")
	}
	return nil
}

// UpdateExecution writes the terminal fields while the execution is still
// running and reports whether it did.
func (r *ExecutionRepository) UpdateExecution(ctx context.Context, id string, u workflow.ExecutionUpdate) (bool, error) {
	completed := u.CompletedAt
	res := r.db.WithContext(ctx).
		Model(&ExecutionModel{}).
		Where("id = ? AND status = ?", id, string(workflow.StatusRunning)).
		Select("status", "output", "credits_used", "error_message", "completed_at").
		Updates(&ExecutionModel{
			Status:       string(u.Status),
			Output:       u.Output,
			CreditsUsed:  u.CreditsUsed,
			ErrorMessage: u.ErrorMessage,
			CompletedAt:  &completed,
		})
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "execution")
	}
	return res.RowsAffected > 0, nil
}

// FindExecution returns the execution or nil, nil when id is unknown.
func (r *ExecutionRepository) FindExecution(ctx context.Context, id string) (*workflow.Execution, error) {
	var m ExecutionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&m).Error; err != nil {
		return nil, database.FromDatabase(err, "execution")
	}
	if m.ID == "" {
		return nil, nil
	}
	return m.toDomain(), nil
}

// CreateNodeExecution inserts a node execution after the execution's
// previous ones. Nodes of one execution run one at a time, so the next
// sequence number is free.
func (r *ExecutionRepository) CreateNodeExecution(ctx context.Context, ne *workflow.NodeExecution) error {
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var seq int
		err := tx.Model(&NodeExecutionModel{}).
			Where("execution_id = ?", ne.ExecutionID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&seq).Error
		if err != nil {
			return err
		}
		return tx.Create(&NodeExecutionModel{
			ID:           ne.ID,
			ExecutionID:  ne.ExecutionID,
			Seq:          seq + 1,
			NodeID:       ne.NodeID,
			NodeType:     ne.NodeType,
			Status:       string(ne.Status),
			Input:        ne.Input,
			Output:       jsonValue{ne.Output},
			CreditsUsed:  ne.CreditsUsed,
			Duration:     ne.Duration,
			ErrorMessage: ne.ErrorMessage,
			StartedAt:    ne.StartedAt,
			CompletedAt:  ne.CompletedAt,
		}).Error
	})
	if err != nil {
		return database.FromDatabase(err, "node execution")
	}
	return nil
}

// UpdateNodeExecution writes the terminal fields of a running node execution.
func (r *ExecutionRepository) UpdateNodeExecution(ctx context.Context, id string, u workflow.NodeExecutionUpdate) (bool, error) {
	completed := u.CompletedAt
	res := r.db.WithContext(ctx).
		Model(&NodeExecutionModel{}).
		Where("id = ? AND status = ?", id, string(workflow.StatusRunning)).
		Updates(map[string]any{
			"status":        string(u.Status),
			"output":        jsonValue{u.Output},
			"credits_used":  u.CreditsUsed,
			"duration":      u.Duration,
			"error_message": u.ErrorMessage,
			"completed_at":  &completed,
		})
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "node execution")
	}
	return res.RowsAffected > 0, nil
}

// ListNodeExecutions returns an execution's nodes in the order they started.
func (r *ExecutionRepository) ListNodeExecutions(ctx context.Context, executionID string) ([]workflow.NodeExecution, error) {
	var rows []NodeExecutionModel
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, database.FromDatabase(err, "node execution")
	}
	out := make([]workflow.NodeExecution, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// ListExecutions returns one page of userID's executions.
func (r *ExecutionRepository) ListExecutions(ctx context.Context, userID string, params query.Params) (*query.Result[workflow.Execution], error) {
	params.Where("user_id", query.OpEq, userID)

	page, err := query.Apply[ExecutionModel](r.db.WithContext(ctx).Model(&ExecutionModel{}), params, ExecutionListConfig)
	if err != nil {
		return nil, database.FromDatabase(err, "execution")
	}
	out := &query.Result[workflow.Execution]{
		Data:       make([]workflow.Execution, len(page.Data)),
		Pagination: page.Pagination,
		Facets:     page.Facets,
	}
	for i := range page.Data {
		out.Data[i] = *page.Data[i].toDomain()
	}
	return out, nil
}
