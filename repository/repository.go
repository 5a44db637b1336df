package repository

import "github.com/kbukum/flowengine/database"

// Repositories groups every repository over one database.
type Repositories struct {
	Workflows    *WorkflowRepository
	Executions   *ExecutionRepository
	Accounts     *AccountRepository
	Reservations *ReservationRepository
	Knowledge    *KnowledgeRepository
}

// New creates every repository over db.
func New(db *database.DB) *Repositories {
	return &Repositories{
		Workflows:    NewWorkflowRepository(db),
		Executions:   NewExecutionRepository(db),
		Accounts:     NewAccountRepository(db),
		Reservations: NewReservationRepository(db),
		Knowledge:    NewKnowledgeRepository(db),
	}
}
