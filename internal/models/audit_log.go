// internal/models/audit_log.go
package models

import (
	"github.com/google/uuid"
)

// AuditLog records every mutating API call: who did what to which resource.
// Settlements and reversals move money, so the trail is append-only and rows
// are never updated.
type AuditLog struct {
	BaseModel
	OperatorID   *uuid.UUID `json:"operator_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"not null"`
	ResourceType string     `json:"resource_type" gorm:"index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	IPAddress    string     `json:"ip_address"`
	UserAgent    string     `json:"user_agent"`
	RequestData  JSONB      `json:"request_data" gorm:"type:jsonb"`

	Operator *Operator `json:"operator,omitempty" gorm:"foreignKey:OperatorID"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
