// internal/services/commission_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/commission-backend/internal/models"
	"github.com/paydesk/commission-backend/internal/utils"
)

func TestListByPOS(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db)
	ref := month(2025, 3)

	createCommission(t, db, "P400", "30.00", models.CommissionStatePending, ref)
	createCommission(t, db, "P400", "20.00", models.CommissionStateAccrued, ref)
	createCommission(t, db, "P400", "50.00", models.CommissionStatePaid, ref)
	createCommission(t, db, "P401", "10.00", models.CommissionStateExpired, ref)

	summaries, total, err := svc.ListByPOS(utils.PaginationParams{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, summaries, 2)

	p400 := summaries[0]
	assert.Equal(t, "P400", p400.POSID)
	assert.True(t, p400.PendingTotal.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, p400.AccruedTotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, p400.PaidTotal.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, int64(1), p400.PendingCount)
	assert.Equal(t, int64(1), p400.AccruedCount)

	p401 := summaries[1]
	assert.True(t, p401.ExpiredTotal.Equal(decimal.RequireFromString("10.00")))
}

func TestListByPOSRouteFilter(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db)
	ref := month(2025, 3)

	createCommission(t, db, "P402", "30.00", models.CommissionStatePending, ref)

	south := createCommission(t, db, "P403", "30.00", models.CommissionStatePending, ref)
	require.NoError(t, db.Model(south).Update("route", "south").Error)

	summaries, total, err := svc.ListByPOS(utils.PaginationParams{Page: 1, Limit: 20, Route: "south"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, "P403", summaries[0].POSID)
}

func TestCreditBalance(t *testing.T) {
	db := setupTestDB(t)
	settle := NewSettlementService(db)
	svc := NewCommissionService(db)

	// Overpay by 20: surplus credit accrues.
	c := createCommission(t, db, "P404", "80.00", models.CommissionStatePending, month(2025, 3))
	_, err := settle.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("100.00")},
	}, nil)
	require.NoError(t, err)

	balance, err := svc.creditBalance("P404")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("20.00")))

	// Consume 15 of it against new debt: 5 remains.
	c2 := createCommission(t, db, "P404", "15.00", models.CommissionStatePending, month(2025, 4))
	_, err = settle.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c2.ID},
		Instruments: map[string]decimal.Decimal{
			models.InstrumentAccumulatedCredit: decimal.RequireFromString("15.00"),
		},
	}, nil)
	require.NoError(t, err)

	balance, err = svc.creditBalance("P404")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("5.00")))
}

func TestTotals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db)
	ref := month(2025, 3)

	createCommission(t, db, "P405", "30.00", models.CommissionStatePending, ref)
	createCommission(t, db, "P405", "20.00", models.CommissionStateAccrued, ref)
	createCommission(t, db, "P405", "50.00", models.CommissionStatePaid, ref)
	createCommission(t, db, "P405", "10.00", models.CommissionStateExpired, ref)

	totals, err := svc.Totals("")
	require.NoError(t, err)
	assert.True(t, totals.OwedTotal.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, totals.PaidTotal.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, totals.ExpiredTotal.Equal(decimal.RequireFromString("10.00")))
}

func TestListForPOSReturnsOnlySettleable(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db)
	ref := month(2025, 3)

	createCommission(t, db, "P406", "30.00", models.CommissionStatePending, ref)
	createCommission(t, db, "P406", "20.00", models.CommissionStateAccrued, ref)
	createCommission(t, db, "P406", "50.00", models.CommissionStatePaid, ref)
	createCommission(t, db, "P407", "10.00", models.CommissionStatePending, ref)

	commissions, err := svc.ListForPOS("P406")
	require.NoError(t, err)
	require.Len(t, commissions, 2)
	for _, c := range commissions {
		assert.Equal(t, "P406", c.POSID)
		assert.True(t, c.Settleable())
	}
}

func TestListRoutes(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db)
	ref := month(2025, 3)

	createCommission(t, db, "P408", "10.00", models.CommissionStatePending, ref)
	south := createCommission(t, db, "P409", "10.00", models.CommissionStatePending, ref)
	require.NoError(t, db.Model(south).Update("route", "south").Error)

	routes, err := svc.ListRoutes()
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, routes)
}

func TestListBatchesAndGetBatch(t *testing.T) {
	db := setupTestDB(t)
	settle := NewSettlementService(db)
	svc := NewCommissionService(db)

	c := createCommission(t, db, "P410", "60.00", models.CommissionStatePending, month(2025, 3))
	created, err := settle.Settle(&SettleRequest{
		CommissionIDs: []uuid.UUID{c.ID},
		Instruments:   map[string]decimal.Decimal{"Cash": decimal.RequireFromString("60.00")},
	}, nil)
	require.NoError(t, err)

	batches, total, err := svc.ListBatches(utils.PaginationParams{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, batches, 1)

	batch, err := svc.GetBatch(created.ID)
	require.NoError(t, err)
	// Consolidated original plus the derived paid row.
	assert.Len(t, batch.Commissions, 2)

	_, err = svc.GetBatch(uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}
