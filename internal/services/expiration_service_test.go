// internal/services/expiration_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/commission-backend/internal/models"
)

func TestCycleWindow(t *testing.T) {
	tests := []struct {
		name      string
		reference time.Time
		cutoffDay int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "cutoff day 1 is the calendar month",
			reference: month(2025, 3),
			cutoffDay: 1,
			wantStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "cutoff day 25 spans two months",
			reference: month(2025, 3),
			cutoffDay: 25,
			wantStart: time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "cutoff day clamped to short month",
			reference: month(2025, 3),
			cutoffDay: 31,
			wantStart: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "reference day is irrelevant",
			reference: time.Date(2025, 3, 17, 13, 45, 0, 0, time.UTC),
			cutoffDay: 10,
			wantStart: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := cycleWindow(tt.reference, tt.cutoffDay)
			assert.True(t, start.Equal(tt.wantStart), "start: got %s, want %s", start, tt.wantStart)
			assert.True(t, end.Equal(tt.wantEnd), "end: got %s, want %s", end, tt.wantEnd)
		})
	}
}

func TestExpireInactive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExpirationService(db, 1)
	ref := month(2025, 3)

	// P200 has debt and paid inside the window: stays.
	createCommission(t, db, "P200", "40.00", models.CommissionStatePending, ref)
	activeBatch := &models.PaymentBatch{
		POSID:       "P200",
		TotalPaid:   decimal.RequireFromString("10.00"),
		Instruments: models.JSONB{"Cash": "10.00"},
	}
	require.NoError(t, db.Create(activeBatch).Error)
	require.NoError(t, db.Model(activeBatch).Update("created_at", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)).Error)

	// P201 has debt and no activity: expires.
	createCommission(t, db, "P201", "55.00", models.CommissionStatePending, ref)
	createCommission(t, db, "P201", "15.00", models.CommissionStateAccrued, ref)

	// P202 paid, but before the window: also expires.
	createCommission(t, db, "P202", "25.00", models.CommissionStatePending, ref)
	staleBatch := &models.PaymentBatch{
		POSID:       "P202",
		TotalPaid:   decimal.RequireFromString("5.00"),
		Instruments: models.JSONB{"Cash": "5.00"},
	}
	require.NoError(t, db.Create(staleBatch).Error)
	require.NoError(t, db.Model(staleBatch).Update("created_at", time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)).Error)

	result, err := svc.ExpireInactive(ref)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ExpiredCount)
	assert.Contains(t, result.ActivePOS, "P200")
	assert.NotContains(t, result.ActivePOS, "P201")
	assert.NotContains(t, result.ActivePOS, "P202")

	// The active POS keeps its debt.
	var survivor models.Commission
	require.NoError(t, db.Where("pos_id = ?", "P200").First(&survivor).Error)
	assert.Equal(t, models.CommissionStatePending, survivor.State)

	// Expired rows carry the inactivity reason.
	var expired []models.Commission
	require.NoError(t, db.Where("pos_id IN ? AND state = ?", []string{"P201", "P202"}, models.CommissionStateExpired).Find(&expired).Error)
	require.Len(t, expired, 3)
	for _, c := range expired {
		assert.Equal(t, models.ExpiredReasonNoActivity, c.Observation)
	}
}

func TestExpireInactiveIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExpirationService(db, 1)
	ref := month(2025, 3)

	createCommission(t, db, "P210", "20.00", models.CommissionStatePending, ref)

	first, err := svc.ExpireInactive(ref)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ExpiredCount)

	second, err := svc.ExpireInactive(ref)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ExpiredCount)
}

func TestExpireInactiveSkipsTerminalStates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExpirationService(db, 1)
	ref := month(2025, 3)

	paid := createCommission(t, db, "P211", "20.00", models.CommissionStatePaid, ref)
	consolidated := createCommission(t, db, "P211", "20.00", models.CommissionStateConsolidated, ref)

	result, err := svc.ExpireInactive(ref)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExpiredCount)

	var paidCheck models.Commission
	require.NoError(t, db.First(&paidCheck, "id = ?", paid.ID).Error)
	assert.Equal(t, models.CommissionStatePaid, paidCheck.State)

	var consolidatedCheck models.Commission
	require.NoError(t, db.First(&consolidatedCheck, "id = ?", consolidated.ID).Error)
	assert.Equal(t, models.CommissionStateConsolidated, consolidatedCheck.State)
}

func TestExpireOnCutover(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExpirationService(db, 1)
	prev := month(2025, 2)

	// Active during the closing cycle: expired with the month-change reason.
	createCommission(t, db, "P220", "30.00", models.CommissionStatePending, prev)
	batch := &models.PaymentBatch{
		POSID:       "P220",
		TotalPaid:   decimal.RequireFromString("10.00"),
		Instruments: models.JSONB{"Cash": "10.00"},
	}
	require.NoError(t, db.Create(batch).Error)
	require.NoError(t, db.Model(batch).Update("created_at", time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)).Error)

	// Inactive: expired with the no-activity reason.
	createCommission(t, db, "P221", "50.00", models.CommissionStatePending, prev)

	total, err := svc.ExpireOnCutover(prev)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	var activeExpired models.Commission
	require.NoError(t, db.Where("pos_id = ?", "P220").First(&activeExpired).Error)
	assert.Equal(t, models.CommissionStateExpired, activeExpired.State)
	assert.Equal(t, models.ExpiredReasonMonthChanged, activeExpired.Observation)

	var inactiveExpired models.Commission
	require.NoError(t, db.Where("pos_id = ?", "P221").First(&inactiveExpired).Error)
	assert.Equal(t, models.CommissionStateExpired, inactiveExpired.State)
	assert.Equal(t, models.ExpiredReasonNoActivity, inactiveExpired.Observation)
}

func TestLatestLiquidationMonth(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExpirationService(db, 1)

	latest, err := svc.LatestLiquidationMonth()
	require.NoError(t, err)
	assert.Nil(t, latest)

	createCommission(t, db, "P230", "10.00", models.CommissionStatePending, month(2025, 1))
	createCommission(t, db, "P230", "10.00", models.CommissionStatePending, month(2025, 3))
	createCommission(t, db, "P230", "10.00", models.CommissionStatePending, month(2025, 2))

	latest, err = svc.LatestLiquidationMonth()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(month(2025, 3)))
}

func TestInvalidCutoffDayFallsBack(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExpirationService(db, 40)
	assert.Equal(t, 1, svc.cutoffDay)

	svc = NewExpirationService(db, 0)
	assert.Equal(t, 1, svc.cutoffDay)
}
