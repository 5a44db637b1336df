package repository

import (
	"context"
	"time"

	"github.com/kbukum/flowengine/database"
	"github.com/kbukum/flowengine/workflow"
)

// ReservationRepository implements workflow.ReservationStore.
type ReservationRepository struct {
	db *database.DB
}

var _ workflow.ReservationStore = (*ReservationRepository)(nil)

// NewReservationRepository creates a ReservationRepository.
func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// CreateReservation inserts a pending reservation.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res *workflow.Reservation) error {
	err := r.db.WithContext(ctx).Create(&ReservationModel{
		ID:          res.ID,
		UserID:      res.UserID,
		WorkflowID:  res.WorkflowID,
		ExecutionID: res.ExecutionID,
		Amount:      res.Amount,
		Refunded:    res.Refunded,
		Status:      string(res.Status),
		CreatedAt:   res.CreatedAt,
		SettledAt:   res.SettledAt,
	}).Error
	if err != nil {
		return database.FromDatabase(err, "reservation")
	}
	return nil
}

// AttachExecution records which execution a reservation pays for.
func (r *ReservationRepository) AttachExecution(ctx context.Context, reservationID, executionID string) error {
	err := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ?", reservationID).
		Update("execution_id", executionID).Error
	if err != nil {
		return database.FromDatabase(err, "reservation")
	}
	return nil
}

// SettleReservation moves a pending reservation to status. A false return
// means another party claimed it first.
func (r *ReservationRepository) SettleReservation(ctx context.Context, id string, status workflow.ReservationStatus, refunded int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND status = ?", id, string(workflow.ReservationPending)).
		Updates(map[string]any{
			"status":     string(status),
			"refunded":   refunded,
			"settled_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "reservation")
	}
	return res.RowsAffected > 0, nil
}

// ReopenReservation moves a reservation claimed as from back to pending.
func (r *ReservationRepository) ReopenReservation(ctx context.Context, id string, from workflow.ReservationStatus) error {
	err := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":     string(workflow.ReservationPending),
			"refunded":   0,
			"settled_at": nil,
		}).Error
	if err != nil {
		return database.FromDatabase(err, "reservation")
	}
	return nil
}

// ListStaleReservations returns up to limit pending reservations created
// before the cutoff, oldest first.
func (r *ReservationRepository) ListStaleReservations(ctx context.Context, before time.Time, limit int) ([]workflow.Reservation, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(workflow.ReservationPending), before).
		Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []ReservationModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "reservation")
	}
	out := make([]workflow.Reservation, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// FindReservation returns the reservation or nil, nil.
func (r *ReservationRepository) FindReservation(ctx context.Context, id string) (*workflow.Reservation, error) {
	var m ReservationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&m).Error; err != nil {
		return nil, database.FromDatabase(err, "reservation")
	}
	if m.ID == "" {
		return nil, nil
	}
	res := m.toDomain()
	return &res, nil
}
