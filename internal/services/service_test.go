// internal/services/service_test.go
package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/paydesk/commission-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Operator{},
		&models.IngestionBatch{},
		&models.PaymentBatch{},
		&models.Commission{},
		&models.AuditLog{},
	))

	return db
}

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func createCommission(t *testing.T, db *gorm.DB, posID string, amount string, state models.CommissionState, liquidationMonth time.Time) *models.Commission {
	t.Helper()

	c := &models.Commission{
		POSID:            posID,
		PointOfSale:      "POS " + posID,
		Route:            "north",
		Product:          "prepaid-sim",
		ICCID:            "89000" + posID,
		Amount:           decimal.RequireFromString(amount),
		LiquidationMonth: &liquidationMonth,
		State:            state,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func createOperator(t *testing.T, db *gorm.DB, username string, capabilities ...string) *models.Operator {
	t.Helper()

	op := &models.Operator{
		Username:     username,
		Email:        username + "@example.com",
		Capabilities: capabilities,
		Status:       models.OperatorStatusActive,
	}
	require.NoError(t, op.SetPassword("Secret123!"))
	require.NoError(t, db.Create(op).Error)
	return op
}

func sumByState(t *testing.T, db *gorm.DB, posID string, state models.CommissionState) decimal.Decimal {
	t.Helper()

	var commissions []models.Commission
	require.NoError(t, db.Where("pos_id = ? AND state = ?", posID, state).Find(&commissions).Error)

	total := decimal.Zero
	for _, c := range commissions {
		total = total.Add(c.Amount)
	}
	return total
}
