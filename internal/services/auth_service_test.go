// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/paydesk/commission-backend/internal/config"
	"github.com/paydesk/commission-backend/internal/models"
)

func newAuthService(db *gorm.DB) *AuthService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
	}
	return NewAuthService(db, cfg)
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)
	createOperator(t, db, "cashier", "settle")

	resp, err := svc.Login(&LoginRequest{Username: "cashier", Password: "Secret123!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotNil(t, resp.Operator.LastLoginAt)

	_, err = svc.Login(&LoginRequest{Username: "cashier", Password: "wrong"})
	require.Error(t, err)

	_, err = svc.Login(&LoginRequest{Username: "nobody", Password: "Secret123!"})
	require.Error(t, err)
}

func TestLoginSuspendedOperator(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)

	op := createOperator(t, db, "exstaff", "settle")
	require.NoError(t, db.Model(op).Update("status", models.OperatorStatusSuspended).Error)

	_, err := svc.Login(&LoginRequest{Username: "exstaff", Password: "Secret123!"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suspended")
}

func TestRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)
	createOperator(t, db, "cashier", "settle")

	resp, err := svc.Login(&LoginRequest{Username: "cashier", Password: "Secret123!"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "cashier", refreshed.Operator.Username)

	_, err = svc.RefreshToken("not-a-token")
	require.Error(t, err)
}

func TestCreateOperator(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)

	op, err := svc.CreateOperator(&CreateOperatorRequest{
		Username:     "advisor1",
		Email:        "advisor1@example.com",
		Password:     "Str0ng!Pass",
		FullName:     "Route Advisor",
		Capabilities: []string{"settle", "ingest"},
	})
	require.NoError(t, err)
	assert.True(t, op.HasCapability(models.CapabilitySettle))
	assert.True(t, op.HasCapability(models.CapabilityIngest))
	assert.False(t, op.HasCapability(models.CapabilityReverse))

	// Duplicate username is rejected.
	_, err = svc.CreateOperator(&CreateOperatorRequest{
		Username:     "advisor1",
		Email:        "other@example.com",
		Password:     "Str0ng!Pass",
		Capabilities: []string{"settle"},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	// Unknown capability is rejected by validation.
	_, err = svc.CreateOperator(&CreateOperatorRequest{
		Username:     "advisor2",
		Email:        "advisor2@example.com",
		Password:     "Str0ng!Pass",
		Capabilities: []string{"superuser"},
	})
	require.Error(t, err)
}

func TestAdminImpliesAllCapabilities(t *testing.T) {
	op := &models.Operator{Capabilities: []string{"admin"}}
	assert.True(t, op.HasCapability(models.CapabilitySettle))
	assert.True(t, op.HasCapability(models.CapabilityReverse))
	assert.True(t, op.HasCapability(models.CapabilityIngest))
	assert.True(t, op.HasCapability(models.CapabilityAdmin))
}
