package repository

import (
	"time"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/workflow"
)

// Models returns every table this package owns, for auto-migration.
func Models() []any {
	return []any{
		&WorkflowModel{},
		&NodeTypeConfigModel{},
		&ExecutionModel{},
		&NodeExecutionModel{},
		&AccountModel{},
		&LedgerEntryModel{},
		&ReservationModel{},
		&KnowledgeDocumentModel{},
	}
}

// WorkflowModel is a stored workflow definition.
type WorkflowModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	OwnerID     string    `gorm:"index;size:64;not null"`
	Name        string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	Graph       dag.Graph `gorm:"serializer:json;type:text"`
	Published   bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (WorkflowModel) TableName() string { return "workflows" }

func (m *WorkflowModel) toDomain() *workflow.Workflow {
	return &workflow.Workflow{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Description: m.Description,
		Graph:       m.Graph,
		Published:   m.Published,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func workflowFromDomain(wf *workflow.Workflow) *WorkflowModel {
	return &WorkflowModel{
		ID:          wf.ID,
		OwnerID:     wf.OwnerID,
		Name:        wf.Name,
		Description: wf.Description,
		Graph:       wf.Graph,
		Published:   wf.Published,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
}

// NodeTypeConfigModel is the pricing record of a node type.
type NodeTypeConfigModel struct {
	Type                string `gorm:"primaryKey;size:64"`
	CreditsPerExecution int64  `gorm:"not null;default:0"`
	IsActive            bool   `gorm:"not null"`
	UpdatedAt           time.Time
}

func (NodeTypeConfigModel) TableName() string { return "node_type_configs" }

// ExecutionModel is one run of a workflow.
type ExecutionModel struct {
	ID               string         `gorm:"primaryKey;size:64"`
	WorkflowID       string         `gorm:"index;size:64;not null"`
	UserID           string         `gorm:"index;size:64;not null"`
	Status           string         `gorm:"index;size:16;not null"`
	Input            map[string]any `gorm:"serializer:json;type:text"`
	Output           map[string]any `gorm:"serializer:json;type:text"`
	EstimatedCredits int64          `gorm:"not null;default:0"`
	CreditsUsed      int64          `gorm:"not null;default:0"`
	ErrorMessage     string         `gorm:"type:text"`
	StartedAt        time.Time      `gorm:"index;not null"`
	CompletedAt      *time.Time
}

func (ExecutionModel) TableName() string { return "executions" }

func (m *ExecutionModel) toDomain() *workflow.Execution {
	return &workflow.Execution{
		ID:               m.ID,
		WorkflowID:       m.WorkflowID,
		UserID:           m.UserID,
		Status:           workflow.Status(m.Status),
		Input:            m.Input,
		Output:           m.Output,
		EstimatedCredits: m.EstimatedCredits,
		CreditsUsed:      m.CreditsUsed,
		ErrorMessage:     m.ErrorMessage,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
	}
}

// NodeExecutionModel is one node within one execution. Seq preserves the
// order nodes started in.
type NodeExecutionModel struct {
	ID           string         `gorm:"primaryKey;size:64"`
	ExecutionID  string         `gorm:"index:idx_node_executions_seq,priority:1;size:64;not null"`
	Seq          int            `gorm:"index:idx_node_executions_seq,priority:2;not null"`
	NodeID       string         `gorm:"size:128;not null"`
	NodeType     string         `gorm:"size:64;not null"`
	Status       string         `gorm:"size:16;not null"`
	Input        map[string]any `gorm:"serializer:json;type:text"`
	Output       jsonValue      `gorm:"type:text"`
	CreditsUsed  int64          `gorm:"not null;default:0"`
	Duration     time.Duration  `gorm:"not null;default:0"`
	ErrorMessage string         `gorm:"type:text"`
	StartedAt    time.Time      `gorm:"not null"`
	CompletedAt  *time.Time
}

func (NodeExecutionModel) TableName() string { return "node_executions" }

func (m *NodeExecutionModel) toDomain() workflow.NodeExecution {
	return workflow.NodeExecution{
		ID:           m.ID,
		ExecutionID:  m.ExecutionID,
		NodeID:       m.NodeID,
		NodeType:     m.NodeType,
		Status:       workflow.Status(m.Status),
		Input:        m.Input,
		Output:       m.Output.V,
		CreditsUsed:  m.CreditsUsed,
		Duration:     m.Duration,
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

// AccountModel is a user's credit balance and role.
type AccountModel struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Role      string `gorm:"size:32;not null;default:user"`
	Balance   int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccountModel) TableName() string { return "accounts" }

// LedgerEntryModel is one balance movement. Amount is negative for debits.
type LedgerEntryModel struct {
	ID           string         `gorm:"primaryKey;size:64"`
	UserID       string         `gorm:"index;size:64;not null"`
	Amount       int64          `gorm:"not null"`
	BalanceAfter int64          `gorm:"not null"`
	Reason       string         `gorm:"size:64;not null"`
	ModelRef     string         `gorm:"size:64"`
	Ref          string         `gorm:"index;size:64"`
	Extra        map[string]any `gorm:"serializer:json;type:text"`
	CreatedAt    time.Time
}

func (LedgerEntryModel) TableName() string { return "ledger_entries" }

// ReservationModel is a durable pre-deduction.
type ReservationModel struct {
	ID          string     `gorm:"primaryKey;size:64"`
	UserID      string     `gorm:"index;size:64;not null"`
	WorkflowID  string     `gorm:"size:64;not null"`
	ExecutionID string     `gorm:"index;size:64"`
	Amount      int64      `gorm:"not null"`
	Refunded    int64      `gorm:"not null;default:0"`
	Status      string     `gorm:"index:idx_reservations_pending,priority:1;size:16;not null"`
	CreatedAt   time.Time  `gorm:"index:idx_reservations_pending,priority:2"`
	SettledAt   *time.Time
}

func (ReservationModel) TableName() string { return "reservations" }

func (m *ReservationModel) toDomain() workflow.Reservation {
	return workflow.Reservation{
		ID:          m.ID,
		UserID:      m.UserID,
		WorkflowID:  m.WorkflowID,
		ExecutionID: m.ExecutionID,
		Amount:      m.Amount,
		Refunded:    m.Refunded,
		Status:      workflow.ReservationStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		SettledAt:   m.SettledAt,
	}
}

// KnowledgeDocumentModel is a document in a user's knowledge base.
type KnowledgeDocumentModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	UserID     string `gorm:"index:idx_knowledge_owner,priority:1;size:64;not null"`
	Collection string `gorm:"index:idx_knowledge_owner,priority:2;size:128"`
	Title      string `gorm:"size:255"`
	Content    string `gorm:"type:text;not null"`
	CreatedAt  time.Time
}

func (KnowledgeDocumentModel) TableName() string { return "knowledge_documents" }
