// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paydesk/commission-backend/internal/config"
	"github.com/paydesk/commission-backend/internal/models"
	"github.com/paydesk/commission-backend/internal/utils"
)

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateOperatorRequest struct {
	Username      string   `json:"username" validate:"required,username"`
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"required,strong_password"`
	FullName      string   `json:"full_name"`
	Capabilities  []string `json:"capabilities" validate:"required,min=1,dive,capability"`
	AssignedRoute string   `json:"assigned_route"`
}

type AuthResponse struct {
	Operator     *models.Operator `json:"operator"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int              `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:  db,
		cfg: cfg,
	}
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Find operator by username
	var operator models.Operator
	if err := s.db.Where("username = ?", req.Username).First(&operator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid username or password")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if operator.Status == models.OperatorStatusSuspended {
		return nil, errors.New("account is suspended")
	}

	// Verify password
	if err := operator.CheckPassword(req.Password); err != nil {
		return nil, errors.New("invalid username or password")
	}

	// Update last login time
	now := time.Now()
	operator.LastLoginAt = &now
	s.db.Save(&operator)

	return s.issueTokens(&operator)
}

func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	operatorIDStr, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	operatorID, err := uuid.Parse(operatorIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid operator ID in token: %w", err)
	}

	var operator models.Operator
	if err := s.db.First(&operator, operatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("operator not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if operator.Status != models.OperatorStatusActive {
		return nil, errors.New("account is not active")
	}

	return s.issueTokens(&operator)
}

// CreateOperator provisions a new account. Only callers holding the admin
// capability reach this through the router.
func (s *AuthService) CreateOperator(req *CreateOperatorRequest) (*models.Operator, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var existing models.Operator
	if err := s.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error; err == nil {
		if existing.Email == req.Email {
			return nil, NewValidationError("operator with this email already exists")
		}
		return nil, NewValidationError("username already taken")
	}

	operator := &models.Operator{
		Username:      req.Username,
		Email:         req.Email,
		FullName:      req.FullName,
		Capabilities:  req.Capabilities,
		AssignedRoute: req.AssignedRoute,
		Status:        models.OperatorStatusActive,
	}
	if err := operator.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(operator).Error; err != nil {
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	return operator, nil
}

func (s *AuthService) GetOperatorByID(operatorID uuid.UUID) (*models.Operator, error) {
	var operator models.Operator
	if err := s.db.First(&operator, operatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("operator not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &operator, nil
}

func (s *AuthService) issueTokens(operator *models.Operator) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(
		operator.ID,
		operator.Username,
		operator.Capabilities,
		s.cfg.JWT.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(operator.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		Operator:     operator,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}
