// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/paydesk/commission-backend/internal/config"
	"github.com/paydesk/commission-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.Operator{},
		&models.IngestionBatch{},
		&models.PaymentBatch{},
		&models.Commission{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Commission indexes
		"CREATE INDEX IF NOT EXISTS idx_commissions_pos_state ON commissions(pos_id, state)",
		"CREATE INDEX IF NOT EXISTS idx_commissions_state_ledger ON commissions(state, is_ledger_entry)",
		"CREATE INDEX IF NOT EXISTS idx_commissions_payment_month ON commissions(payment_month DESC)",
		"CREATE INDEX IF NOT EXISTS idx_commissions_route ON commissions(route, pos_id)",

		// Payment batch indexes
		"CREATE INDEX IF NOT EXISTS idx_payment_batches_pos_created ON payment_batches(pos_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_payment_batches_created_by ON payment_batches(created_by_id)",

		// Ingestion indexes
		"CREATE INDEX IF NOT EXISTS idx_ingestion_batches_status ON ingestion_batches(status, created_at DESC)",

		// Amounts are never persisted negative; direction lives in the state
		// and ledger kind, not in the sign.
		"ALTER TABLE commissions ADD CONSTRAINT chk_commissions_amount_nonneg CHECK (amount >= 0)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	var adminCount int64
	db.Model(&models.Operator{}).Where("capabilities @> ?", `{admin}`).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.Operator{
			Username:     "admin",
			Email:        "admin@paydesk.local",
			FullName:     "System Administrator",
			Capabilities: []string{string(models.CapabilityAdmin)},
			Status:       models.OperatorStatusActive,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin operator: %w", err)
		}

		log.Println("Default admin operator created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}
