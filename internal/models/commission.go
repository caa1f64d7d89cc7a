// internal/models/commission.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Commission struct {
	BaseModel
	POSID              string          `json:"pos_id" gorm:"column:pos_id;size:100;not null;index"`
	PointOfSale        string          `json:"point_of_sale" gorm:"size:200"`
	Route              string          `json:"route" gorm:"size:100;index"`
	Product            string          `json:"product" gorm:"size:200"`
	ICCID              string          `json:"iccid" gorm:"column:iccid;size:100;index"`
	AdvisorIdentifier  string          `json:"advisor_identifier" gorm:"size:150"`
	AdvisorID          *uuid.UUID      `json:"advisor_id" gorm:"type:uuid;index"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	LiquidationMonth   *time.Time      `json:"liquidation_month" gorm:"index"`
	PaymentMonth       *time.Time      `json:"payment_month" gorm:"index"`
	State              CommissionState `json:"state" gorm:"type:varchar(20);not null;index"`
	BatchID            *uuid.UUID      `json:"batch_id" gorm:"type:uuid;index"`
	IngestionID        *uuid.UUID      `json:"ingestion_id" gorm:"type:uuid;index"`
	IsLedgerEntry      bool            `json:"is_ledger_entry" gorm:"not null;default:false;index"`
	LedgerKind         *LedgerKind     `json:"ledger_kind,omitempty" gorm:"type:varchar(30)"`
	Observation        string          `json:"observation,omitempty" gorm:"type:text"`

	// Relationships
	Advisor   *Operator       `json:"advisor,omitempty" gorm:"foreignKey:AdvisorID"`
	Batch     *PaymentBatch   `json:"batch,omitempty" gorm:"foreignKey:BatchID"`
	Ingestion *IngestionBatch `json:"ingestion,omitempty" gorm:"foreignKey:IngestionID"`
}

// Settleable reports whether the commission can still be selected for
// settlement or expiration.
func (c *Commission) Settleable() bool {
	return c.State == CommissionStatePending || c.State == CommissionStateAccrued
}
