package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/flowengine/database"
	apperrors "github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/workflow"
)

// AccountRepository keeps user balances and roles. It implements
// workflow.Ledger and workflow.UserDirectory; every balance change writes a
// ledger entry in the same transaction.
type AccountRepository struct {
	db *database.DB
}

var (
	_ workflow.Ledger        = (*AccountRepository)(nil)
	_ workflow.UserDirectory = (*AccountRepository)(nil)
)

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// HasCredits reports whether userID's balance covers amount. Users without
// an account have no credits.
func (r *AccountRepository) HasCredits(ctx context.Context, userID string, amount int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AccountModel{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Count(&count).Error
	if err != nil {
		return false, database.FromDatabase(err, "account")
	}
	return count > 0, nil
}

// ConsumeCredits debits amount if the balance covers it. The check and the
// debit are one conditional UPDATE, so concurrent debits cannot overdraw.
func (r *AccountRepository) ConsumeCredits(ctx context.Context, userID string, amount int64, modelRef, contextRef, reason string) (int64, error) {
	var balance int64
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&AccountModel{}).
			Where("user_id = ? AND balance >= ?", userID, amount).
			Updates(map[string]any{
				"balance":    gorm.Expr("balance - ?", amount),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.InsufficientCredits(amount)
		}
		var err error
		if balance, err = currentBalance(tx, userID); err != nil {
			return err
		}
		return tx.Create(&LedgerEntryModel{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       -amount,
			BalanceAfter: balance,
			Reason:       reason,
			ModelRef:     modelRef,
			Ref:          contextRef,
		}).Error
	})
	if err != nil {
		return 0, database.FromDatabase(err, "account")
	}
	return balance, nil
}

// AddCredits credits amount, opening the account if needed.
func (r *AccountRepository) AddCredits(ctx context.Context, userID string, amount int64, reason, ref string, extra map[string]any) error {
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance":    gorm.Expr("accounts.balance + ?", amount),
				"updated_at": now,
			}),
		}).Create(&AccountModel{UserID: userID, Role: RoleUser, Balance: amount, CreatedAt: now, UpdatedAt: now}).Error
		if err != nil {
			return err
		}
		balance, err := currentBalance(tx, userID)
		if err != nil {
			return err
		}
		return tx.Create(&LedgerEntryModel{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       amount,
			BalanceAfter: balance,
			Reason:       reason,
			ModelRef:     workflow.LedgerModelRef,
			Ref:          ref,
			Extra:        extra,
		}).Error
	})
	if err != nil {
		return database.FromDatabase(err, "account")
	}
	return nil
}

// Balance returns userID's balance; zero when there is no account.
func (r *AccountRepository) Balance(ctx context.Context, userID string) (int64, error) {
	balance, err := currentBalance(r.db.WithContext(ctx), userID)
	if err != nil {
		return 0, database.FromDatabase(err, "account")
	}
	return balance, nil
}

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserRole returns userID's role, or "" when there is no account.
func (r *AccountRepository) UserRole(ctx context.Context, userID string) (string, error) {
	var m AccountModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&m).Error; err != nil {
		return "", database.FromDatabase(err, "account")
	}
	return m.Role, nil
}

// SetRole assigns role to userID, opening the account if needed.
func (r *AccountRepository) SetRole(ctx context.Context, userID, role string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"role": role, "updated_at": now}),
	}).Create(&AccountModel{UserID: userID, Role: role, CreatedAt: now, UpdatedAt: now}).Error
	if err != nil {
		return database.FromDatabase(err, "account")
	}
	return nil
}

// Entries returns userID's ledger, oldest first.
func (r *AccountRepository) Entries(ctx context.Context, userID string) ([]LedgerEntryModel, error) {
	var rows []LedgerEntryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, database.FromDatabase(err, "ledger entry")
	}
	return rows, nil
}

func currentBalance(tx *gorm.DB, userID string) (int64, error) {
	var m AccountModel
	if err := tx.Select("balance").Where("user_id = ?", userID).Limit(1).Find(&m).Error; err != nil {
		return 0, err
	}
	return m.Balance, nil
}
