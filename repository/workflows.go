package repository

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/kbukum/flowengine/database"
	"github.com/kbukum/flowengine/workflow"
)

// WorkflowRepository stores workflow definitions and node type pricing.
// It implements workflow.WorkflowStore and workflow.NodeTypeConfigSource.
type WorkflowRepository struct {
	db *database.DB
}

var (
	_ workflow.WorkflowStore        = (*WorkflowRepository)(nil)
	_ workflow.NodeTypeConfigSource = (*WorkflowRepository)(nil)
)

// NewWorkflowRepository creates a WorkflowRepository.
func NewWorkflowRepository(db *database.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// FindWorkflow returns the workflow or nil, nil when id is unknown.
func (r *WorkflowRepository) FindWorkflow(ctx context.Context, id string) (*workflow.Workflow, error) {
	var m WorkflowModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&m).Error
	if err != nil {
		return nil, database.FromDatabase(err, "workflow")
	}
	if m.ID == "" {
		return nil, nil
	}
	return m.toDomain(), nil
}

// SaveWorkflow inserts wf or replaces the stored definition with the same id.
func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	m := workflowFromDomain(wf)
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "name", "description", "graph", "published", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return database.FromDatabase(err, "workflow")
	}
	wf.CreatedAt, wf.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

// NodeTypeConfig returns the pricing record or nil, nil when none is stored.
func (r *WorkflowRepository) NodeTypeConfig(ctx context.Context, nodeType string) (*workflow.NodeTypeConfig, error) {
	var m NodeTypeConfigModel
	err := r.db.WithContext(ctx).Where("type = ?", nodeType).Limit(1).Find(&m).Error
	if err != nil {
		return nil, database.FromDatabase(err, "node type")
	}
	if m.Type == "" {
		return nil, nil
	}
	return &workflow.NodeTypeConfig{
		Type:                m.Type,
		CreditsPerExecution: m.CreditsPerExecution,
		IsActive:            m.IsActive,
	}, nil
}

// SaveNodeTypeConfig upserts a pricing record.
func (r *WorkflowRepository) SaveNodeTypeConfig(ctx context.Context, cfg workflow.NodeTypeConfig) error {
	m := &NodeTypeConfigModel{
		Type:                cfg.Type,
		CreditsPerExecution: cfg.CreditsPerExecution,
		IsActive:            cfg.IsActive,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"credits_per_execution", "is_active", "updated_at"}),
	}).Select("*").Create(m).Error
	if err != nil {
		return database.FromDatabase(err, "node type")
	}
	return nil
}
