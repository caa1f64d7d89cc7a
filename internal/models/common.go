// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type CommissionState string

const (
	CommissionStatePending      CommissionState = "pending"
	CommissionStateAccrued      CommissionState = "accrued"
	CommissionStatePaid         CommissionState = "paid"
	CommissionStateConsolidated CommissionState = "consolidated"
	CommissionStateExpired      CommissionState = "expired"
)

// SettleableStates are the states a commission can be selected from for
// settlement or expiration. Consolidated, Paid and Expired are terminal.
var SettleableStates = []CommissionState{
	CommissionStatePending,
	CommissionStateAccrued,
}

type LedgerKind string

const (
	LedgerKindCreditUse          LedgerKind = "credit_use"
	LedgerKindCashPayment        LedgerKind = "cash_payment"
	LedgerKindOutstandingBalance LedgerKind = "outstanding_balance"
	LedgerKindSurplusAdjustment  LedgerKind = "surplus_adjustment"
)

type IngestionStatus string

const (
	IngestionStatusProcessing IngestionStatus = "processing"
	IngestionStatusSuccess    IngestionStatus = "success"
	IngestionStatusError      IngestionStatus = "error"
	IngestionStatusRolledBack IngestionStatus = "rolled_back"
)

type Capability string

const (
	CapabilitySettle  Capability = "settle"
	CapabilityReverse Capability = "reverse"
	CapabilityIngest  Capability = "ingest"
	CapabilityAdmin   Capability = "admin"
)

type OperatorStatus string

const (
	OperatorStatusActive    OperatorStatus = "active"
	OperatorStatusSuspended OperatorStatus = "suspended"
)

// InstrumentAccumulatedCredit is the reserved instrument name meaning
// consumption of previously accrued credit rather than new money.
const InstrumentAccumulatedCredit = "Accumulated Credit"

// Expiration reasons written into Commission.Observation.
const (
	ExpiredReasonMonthChanged = "expired: month changed"
	ExpiredReasonNoActivity   = "expired: no activity"
)
