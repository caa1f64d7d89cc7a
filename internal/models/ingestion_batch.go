// internal/models/ingestion_batch.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// IngestionBatch is the audit record of one bulk commission upload. The
// expiration cutover trigger keys off its detected reference month.
type IngestionBatch struct {
	BaseModel
	DetectedMonth *time.Time      `json:"detected_month" gorm:"index"`
	CreatedByID   *uuid.UUID      `json:"created_by_id" gorm:"type:uuid;index"`
	Status        IngestionStatus `json:"status" gorm:"type:varchar(20);not null;default:'processing';index"`
	CreatedCount  int             `json:"created_count" gorm:"not null;default:0"`
	ExpiredCount  int             `json:"expired_count" gorm:"not null;default:0"`
	ErrorDetail   string          `json:"error_detail,omitempty" gorm:"type:text"`
	SourceFileKey string          `json:"source_file_key,omitempty" gorm:"size:500"`

	// Relationships
	CreatedBy   *Operator    `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
	Commissions []Commission `json:"commissions,omitempty" gorm:"foreignKey:IngestionID"`
}
