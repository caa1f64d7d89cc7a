// internal/services/reversal_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/paydesk/commission-backend/internal/models"
)

// ReversalService undoes a payment batch: derived ledger rows are deleted,
// original commissions return to Pending exactly as they were before the
// settlement, and the batch itself is removed last.
type ReversalService struct {
	db *gorm.DB
}

type UpdateBatchRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	PaymentDate string          `json:"payment_date" validate:"required"` // YYYY-MM-DD
	Instrument  string          `json:"instrument" validate:"required"`
	Observation string          `json:"observation,omitempty"`
}

func NewReversalService(db *gorm.DB) *ReversalService {
	return &ReversalService{db: db}
}

// Reverse is the exact left-inverse of a settlement for the set of original
// rows. Each ledger row belongs to exactly one batch, so nothing is ever
// double-deleted.
func (s *ReversalService) Reverse(batchID uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var batch models.PaymentBatch
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return err
		}

		var related []models.Commission
		if err := tx.Where("batch_id = ?", batch.ID).Find(&related).Error; err != nil {
			return err
		}

		for i := range related {
			com := &related[i]
			if com.IsLedgerEntry {
				// Artificial row created by the settlement: delete it.
				if err := tx.Unscoped().Delete(com).Error; err != nil {
					return err
				}
				continue
			}

			// Original row: restore its pre-settlement shape.
			updates := map[string]interface{}{
				"state":         models.CommissionStatePending,
				"batch_id":      nil,
				"payment_month": nil,
			}
			if com.LiquidationMonth != nil {
				updates["payment_month"] = *com.LiquidationMonth
			}
			if err := tx.Model(com).Updates(updates).Error; err != nil {
				return err
			}
		}

		// Ledger rows are gone and originals restored; now the batch can go.
		return tx.Unscoped().Delete(&batch).Error
	})

	if err != nil {
		return err
	}

	logrus.WithField("batch_id", batchID).Info("Payment batch reversed")
	return nil
}

// UpdateBatch lets an administrator correct a recorded payment's amount, date,
// instrument or observation without reversing it.
func (s *ReversalService) UpdateBatch(batchID uuid.UUID, req *UpdateBatchRequest) (*models.PaymentBatch, error) {
	if !req.Amount.IsPositive() {
		return nil, NewValidationError("amount must be greater than zero")
	}

	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, NewValidationError("invalid payment date, use YYYY-MM-DD")
	}

	var batch models.PaymentBatch
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return err
		}

		// Keep the original time of day, change only the date.
		createdAt := time.Date(
			paymentDate.Year(), paymentDate.Month(), paymentDate.Day(),
			batch.CreatedAt.Hour(), batch.CreatedAt.Minute(), batch.CreatedAt.Second(),
			batch.CreatedAt.Nanosecond(), batch.CreatedAt.Location(),
		)

		batch.TotalPaid = req.Amount
		batch.TotalCommissionCovered = req.Amount
		batch.CreatedAt = createdAt
		batch.Instruments = models.JSONB{req.Instrument: req.Amount.String()}
		batch.Observation = req.Observation

		return tx.Save(&batch).Error
	})

	if err != nil {
		return nil, err
	}
	return &batch, nil
}
