// internal/services/settlement_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/commission-backend/internal/models"
)

func TestSettleFullPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)
	operator := createOperator(t, db, "cashier", "settle")

	c1 := createCommission(t, db, "P001", "60.00", models.CommissionStatePending, month(2025, 3))
	c2 := createCommission(t, db, "P001", "40.00", models.CommissionStateAccrued, month(2025, 3))

	batch, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c1.ID, c2.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("100.00")},
	}, operator)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.True(t, batch.TotalPaid.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, batch.TotalCommissionCovered.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, "P001", batch.POSID)
	require.NotNil(t, batch.CreatedByID)
	assert.Equal(t, operator.ID, *batch.CreatedByID)

	// Originals are consolidated, not deleted.
	var originals []models.Commission
	require.NoError(t, db.Where("id IN ?", []uuid.UUID{c1.ID, c2.ID}).Find(&originals).Error)
	require.Len(t, originals, 2)
	for _, c := range originals {
		assert.Equal(t, models.CommissionStateConsolidated, c.State)
		require.NotNil(t, c.BatchID)
		assert.Equal(t, batch.ID, *c.BatchID)
		assert.False(t, c.IsLedgerEntry)
	}

	// Exactly one derived row: the cash payment, covering the full total.
	var derived []models.Commission
	require.NoError(t, db.Where("batch_id = ? AND is_ledger_entry = ?", batch.ID, true).Find(&derived).Error)
	require.Len(t, derived, 1)
	assert.Equal(t, models.CommissionStatePaid, derived[0].State)
	require.NotNil(t, derived[0].LedgerKind)
	assert.Equal(t, models.LedgerKindCashPayment, *derived[0].LedgerKind)
	assert.True(t, derived[0].Amount.Equal(decimal.RequireFromString("100.00")))
	assert.Contains(t, derived[0].ICCID, batch.ID.String())
}

func TestSettlePartialPaymentLeavesBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	c := createCommission(t, db, "P002", "150.00", models.CommissionStatePending, month(2025, 3))

	batch, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments:   map[string]decimal.Decimal{"Transfer": decimal.RequireFromString("100.00")},
	}, nil)
	require.NoError(t, err)

	var derived []models.Commission
	require.NoError(t, db.Where("batch_id = ? AND is_ledger_entry = ?", batch.ID, true).Order("amount DESC").Find(&derived).Error)
	require.Len(t, derived, 2)

	paid := derived[0]
	balance := derived[1]

	assert.Equal(t, models.CommissionStatePaid, paid.State)
	assert.Equal(t, models.LedgerKindCashPayment, *paid.LedgerKind)
	assert.True(t, paid.Amount.Equal(decimal.RequireFromString("100.00")))

	// The uncovered remainder stays collectable.
	assert.Equal(t, models.CommissionStatePending, balance.State)
	assert.Equal(t, models.LedgerKindOutstandingBalance, *balance.LedgerKind)
	assert.True(t, balance.Amount.Equal(decimal.RequireFromString("50.00")))

	// Conservation: derived amounts account for the full covered total.
	total := paid.Amount.Add(balance.Amount)
	assert.True(t, total.Equal(batch.TotalCommissionCovered))
}

func TestSettleOverpaymentAccruesSurplus(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	c := createCommission(t, db, "P003", "80.00", models.CommissionStatePending, month(2025, 3))

	batch, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("100.00")},
	}, nil)
	require.NoError(t, err)

	var derived []models.Commission
	require.NoError(t, db.Where("batch_id = ? AND is_ledger_entry = ?", batch.ID, true).Order("amount DESC").Find(&derived).Error)
	require.Len(t, derived, 2)

	paid := derived[0]
	surplus := derived[1]

	assert.True(t, paid.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, models.LedgerKindCashPayment, *paid.LedgerKind)

	// Surplus is stored positive; the kind encodes the direction.
	assert.Equal(t, models.CommissionStateAccrued, surplus.State)
	assert.Equal(t, models.LedgerKindSurplusAdjustment, *surplus.LedgerKind)
	assert.True(t, surplus.Amount.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, surplus.Amount.IsPositive())
}

func TestSettleCreditOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	c := createCommission(t, db, "P004", "60.00", models.CommissionStatePending, month(2025, 3))

	batch, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments: map[string]decimal.Decimal{
			models.InstrumentAccumulatedCredit: decimal.RequireFromString("60.00"),
		},
	}, nil)
	require.NoError(t, err)

	var derived []models.Commission
	require.NoError(t, db.Where("batch_id = ? AND is_ledger_entry = ?", batch.ID, true).Find(&derived).Error)
	require.Len(t, derived, 1)

	// Credit consumption is not a Paid row: no new money entered.
	assert.Equal(t, models.CommissionStateAccrued, derived[0].State)
	assert.Equal(t, models.LedgerKindCreditUse, *derived[0].LedgerKind)
	assert.True(t, derived[0].Amount.Equal(decimal.RequireFromString("60.00")))
}

func TestSettleDropsNonPositiveInstruments(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	c := createCommission(t, db, "P005", "50.00", models.CommissionStatePending, month(2025, 3))

	batch, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments: map[string]decimal.Decimal{
			"Cash":     decimal.RequireFromString("50.00"),
			"Transfer": decimal.Zero,
			"Check":    decimal.RequireFromString("-10.00"),
		},
	}, nil)
	require.NoError(t, err)

	assert.True(t, batch.TotalPaid.Equal(decimal.RequireFromString("50.00")))
	_, hasTransfer := batch.Instruments["Transfer"]
	_, hasCheck := batch.Instruments["Check"]
	assert.False(t, hasTransfer)
	assert.False(t, hasCheck)
}

func TestSettleRejectsMixedPOS(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	c1 := createCommission(t, db, "P006", "10.00", models.CommissionStatePending, month(2025, 3))
	c2 := createCommission(t, db, "P007", "10.00", models.CommissionStatePending, month(2025, 3))

	_, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c1.ID, c2.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("20.00")},
	}, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	// Nothing was mutated.
	var pending int64
	require.NoError(t, db.Model(&models.Commission{}).Where("state = ?", models.CommissionStatePending).Count(&pending).Error)
	assert.Equal(t, int64(2), pending)
}

func TestSettleRejectsZeroTotalInstruments(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	c := createCommission(t, db, "P008", "10.00", models.CommissionStatePending, month(2025, 3))

	_, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.Zero},
	}, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestSettleAlreadySettledRowsRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	c := createCommission(t, db, "P009", "30.00", models.CommissionStatePending, month(2025, 3))

	req := &SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("30.00")},
	}

	_, err := svc.Settle(req, nil)
	require.NoError(t, err)

	// The same selection again finds no settleable rows: this is what the
	// loser of a concurrent double-submit sees.
	_, err = svc.Settle(req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValidCommissions)
}

func TestSettleUnknownIDsRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	_, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{uuid.New()},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("10.00")},
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValidCommissions)
}

func TestSettleBooksDerivedRowsUnderLiquidationMonth(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettlementService(db)

	liq := month(2025, 2)
	c := createCommission(t, db, "P010", "25.00", models.CommissionStatePending, liq)

	batch, err := svc.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("25.00")},
	}, nil)
	require.NoError(t, err)

	var derived models.Commission
	require.NoError(t, db.Where("batch_id = ? AND is_ledger_entry = ?", batch.ID, true).First(&derived).Error)
	require.NotNil(t, derived.LiquidationMonth)
	require.NotNil(t, derived.PaymentMonth)
	assert.True(t, derived.LiquidationMonth.Equal(liq))
	assert.True(t, derived.PaymentMonth.Equal(liq))
}
