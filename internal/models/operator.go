// internal/models/operator.go
package models

import (
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Operator is a backoffice user: an admin who settles and reverses payments,
// or an advisor assigned to a route of points of sale.
type Operator struct {
	BaseModel
	Username      string         `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email         string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string         `json:"-" gorm:"size:255;not null"`
	FullName      string         `json:"full_name" gorm:"size:150"`
	Capabilities  pq.StringArray `json:"capabilities" gorm:"type:text[]"`
	AssignedRoute string         `json:"assigned_route" gorm:"size:100;index"`
	Status        OperatorStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	LastLoginAt   *time.Time     `json:"last_login_at"`
}

func (o *Operator) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = string(hashedPassword)
	return nil
}

func (o *Operator) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password))
}

// HasCapability checks the operator's resolved capability set. Admin implies
// every other capability.
func (o *Operator) HasCapability(cap Capability) bool {
	for _, c := range o.Capabilities {
		if Capability(c) == cap || Capability(c) == CapabilityAdmin {
			return true
		}
	}
	return false
}
