// internal/models/payment_batch.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentBatch groups one settlement event: one POS, one operator, one set of
// payment instruments. It is created only by the settlement engine and
// destroyed only by a reversal.
type PaymentBatch struct {
	BaseModel
	POSID                  string          `json:"pos_id" gorm:"column:pos_id;size:100;not null;index"`
	PointOfSale            string          `json:"point_of_sale" gorm:"size:200"`
	Route                  string          `json:"route" gorm:"size:100"`
	CreatedByID            *uuid.UUID      `json:"created_by_id" gorm:"type:uuid;index"`
	TotalPaid              decimal.Decimal `json:"total_paid" gorm:"type:decimal(12,2);not null"`
	TotalCommissionCovered decimal.Decimal `json:"total_commission_covered" gorm:"type:decimal(12,2);not null"`
	Instruments            JSONB           `json:"instruments" gorm:"type:jsonb;not null"`
	Observation            string          `json:"observation,omitempty" gorm:"type:text"`
	AttachmentKey          string          `json:"attachment_key,omitempty" gorm:"size:500"`

	// Relationships
	CreatedBy   *Operator    `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
	Commissions []Commission `json:"commissions,omitempty" gorm:"foreignKey:BatchID"`
}

// CreditUsed returns the amount of accumulated credit consumed by this batch.
func (b *PaymentBatch) CreditUsed() decimal.Decimal {
	if b.Instruments == nil {
		return decimal.Zero
	}
	if v, ok := b.Instruments[InstrumentAccumulatedCredit]; ok {
		if s, ok := v.(string); ok {
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
		}
		if f, ok := v.(float64); ok {
			return decimal.NewFromFloat(f)
		}
	}
	return decimal.Zero
}
