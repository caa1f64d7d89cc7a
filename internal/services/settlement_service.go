// internal/services/settlement_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paydesk/commission-backend/internal/models"
)

// SettlementService splits a payment across instruments over a set of pending
// commissions, consolidating the originals and emitting derived ledger rows
// that account for every cent of the covered total.
type SettlementService struct {
	db *gorm.DB
}

type SettleRequest struct {
	CommissionIDs []uuid.UUID                `json:"commission_ids" validate:"required,min=1"`
	Instruments   map[string]decimal.Decimal `json:"instruments" validate:"required"`
	Observation   string                     `json:"observation,omitempty"`
	AttachmentKey string                     `json:"attachment_key,omitempty"`
}

func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{db: db}
}

// Settle validates the selection, creates a PaymentBatch and transitions the
// selected commissions to Consolidated, all inside one transaction holding
// row-level locks on the selected rows. Two concurrent settlements that
// overlap serialize on those locks; the loser finds no settleable rows left
// and is rejected with ErrNoValidCommissions.
func (s *SettlementService) Settle(req *SettleRequest, operator *models.Operator) (*models.PaymentBatch, error) {
	if len(req.CommissionIDs) == 0 || len(req.Instruments) == 0 {
		return nil, NewValidationError("commission ids and payment instruments are required")
	}

	var batch *models.PaymentBatch

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var commissions []models.Commission
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ? AND state IN ?", req.CommissionIDs, models.SettleableStates).
			Find(&commissions).Error; err != nil {
			return err
		}

		if len(commissions) == 0 {
			return ErrNoValidCommissions
		}

		// A batch never spans points of sale.
		posID := commissions[0].POSID
		for _, c := range commissions {
			if c.POSID != posID {
				return NewValidationError("cannot settle commissions from different points of sale")
			}
		}

		totalCommission := decimal.Zero
		for _, c := range commissions {
			totalCommission = totalCommission.Add(c.Amount)
		}
		if !totalCommission.IsPositive() {
			return NewValidationError("total commission is zero or negative")
		}

		creditUsed, cashApplied, instruments := normalizeInstruments(req.Instruments)
		totalApplied := cashApplied.Add(creditUsed)
		if !totalApplied.IsPositive() {
			return NewValidationError("the total entered across payment instruments must be greater than zero")
		}

		first := commissions[0]

		var operatorID *uuid.UUID
		if operator != nil {
			operatorID = &operator.ID
		}

		batch = &models.PaymentBatch{
			POSID:                  posID,
			PointOfSale:            first.PointOfSale,
			Route:                  first.Route,
			CreatedByID:            operatorID,
			TotalPaid:              totalApplied,
			TotalCommissionCovered: totalCommission,
			Instruments:            instruments,
			Observation:            req.Observation,
			AttachmentKey:          req.AttachmentKey,
		}
		if err := tx.Create(batch).Error; err != nil {
			return err
		}

		// Consolidate the originals. They are superseded by the derived rows
		// below, never deleted.
		lockedIDs := make([]uuid.UUID, len(commissions))
		for i, c := range commissions {
			lockedIDs[i] = c.ID
		}
		if err := tx.Model(&models.Commission{}).
			Where("id IN ?", lockedIDs).
			Updates(map[string]interface{}{
				"state":    models.CommissionStateConsolidated,
				"batch_id": batch.ID,
			}).Error; err != nil {
			return err
		}

		refMonth := referenceMonth(&first)

		if creditUsed.IsPositive() {
			row := derivedRow(&first, batch, refMonth, creditUsed,
				models.CommissionStateAccrued, models.LedgerKindCreditUse)
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}

		if cashApplied.IsPositive() {
			row := derivedRow(&first, batch, refMonth, cashApplied,
				models.CommissionStatePaid, models.LedgerKindCashPayment)
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}

		remainder := totalCommission.Sub(totalApplied)
		switch {
		case remainder.IsPositive():
			// Underpayment: the balance stays collectable.
			row := derivedRow(&first, batch, refMonth, remainder,
				models.CommissionStatePending, models.LedgerKindOutstandingBalance)
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		case remainder.IsNegative():
			// Overpayment: the surplus becomes credit in the POS's favor.
			row := derivedRow(&first, batch, refMonth, remainder.Abs(),
				models.CommissionStateAccrued, models.LedgerKindSurplusAdjustment)
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":    batch.ID,
		"pos_id":      batch.POSID,
		"total_paid":  batch.TotalPaid.String(),
		"commissions": len(req.CommissionIDs),
	}).Info("Payment batch settled")

	return batch, nil
}

// normalizeInstruments drops zero and negative entries and splits the reserved
// accumulated-credit instrument from real money.
func normalizeInstruments(raw map[string]decimal.Decimal) (creditUsed, cashApplied decimal.Decimal, normalized models.JSONB) {
	creditUsed = decimal.Zero
	cashApplied = decimal.Zero
	normalized = models.JSONB{}

	for name, amount := range raw {
		if !amount.IsPositive() {
			continue
		}
		normalized[name] = amount.String()
		if name == models.InstrumentAccumulatedCredit {
			creditUsed = creditUsed.Add(amount)
		} else {
			cashApplied = cashApplied.Add(amount)
		}
	}
	return creditUsed, cashApplied, normalized
}

// referenceMonth picks the month the derived rows are booked under: the
// commission's liquidation month, else its payment month, else the current
// calendar month.
func referenceMonth(c *models.Commission) time.Time {
	if c.LiquidationMonth != nil {
		return monthStart(*c.LiquidationMonth)
	}
	if c.PaymentMonth != nil {
		return monthStart(*c.PaymentMonth)
	}
	return monthStart(time.Now())
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// ledgerTags maps each ledger kind to the synthetic ICCID prefix that keeps
// derived rows traceable to their batch in exports.
var ledgerTags = map[models.LedgerKind]string{
	models.LedgerKindCreditUse:          "CRED-",
	models.LedgerKindCashPayment:        "PAY-",
	models.LedgerKindOutstandingBalance: "BAL-",
	models.LedgerKindSurplusAdjustment:  "ADJ-",
}

func derivedRow(src *models.Commission, batch *models.PaymentBatch, refMonth time.Time, amount decimal.Decimal, state models.CommissionState, kind models.LedgerKind) *models.Commission {
	month := refMonth
	k := kind
	return &models.Commission{
		POSID:             src.POSID,
		PointOfSale:       src.PointOfSale,
		Route:             src.Route,
		Product:           src.Product,
		ICCID:             ledgerTags[kind] + batch.ID.String(),
		AdvisorIdentifier: src.AdvisorIdentifier,
		AdvisorID:         src.AdvisorID,
		Amount:            amount,
		LiquidationMonth:  &month,
		PaymentMonth:      &month,
		State:             state,
		BatchID:           &batch.ID,
		IsLedgerEntry:     true,
		LedgerKind:        &k,
	}
}
