// internal/services/commission_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paydesk/commission-backend/internal/models"
	"github.com/paydesk/commission-backend/internal/utils"
)

// CommissionService is the read surface: listings grouped by point of sale,
// per-POS detail with settleable rows, and payout history.
type CommissionService struct {
	db *gorm.DB
}

// POSSummary aggregates one point of sale's commissions for list screens.
type POSSummary struct {
	POSID         string          `json:"pos_id"`
	PointOfSale   string          `json:"point_of_sale"`
	Route         string          `json:"route"`
	PendingTotal  decimal.Decimal `json:"pending_total"`
	AccruedTotal  decimal.Decimal `json:"accrued_total"`
	PaidTotal     decimal.Decimal `json:"paid_total"`
	ExpiredTotal  decimal.Decimal `json:"expired_total"`
	PendingCount  int64           `json:"pending_count"`
	AccruedCount  int64           `json:"accrued_count"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
}

// KPITotals is the dashboard header: owed / paid / expired across a filter.
type KPITotals struct {
	OwedTotal    decimal.Decimal `json:"owed_total"`
	PaidTotal    decimal.Decimal `json:"paid_total"`
	ExpiredTotal decimal.Decimal `json:"expired_total"`
}

func NewCommissionService(db *gorm.DB) *CommissionService {
	return &CommissionService{db: db}
}

// ListByPOS returns per-POS summaries, optionally filtered by route or a
// search over POS id and name.
func (s *CommissionService) ListByPOS(params utils.PaginationParams) ([]POSSummary, int64, error) {
	base := s.db.Model(&models.Commission{})
	if params.Route != "" {
		base = base.Where("route = ?", params.Route)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		base = base.Where("pos_id ILIKE ? OR point_of_sale ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("pos_id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	type posRow struct {
		POSID        string
		PointOfSale  string
		Route        string
		PendingTotal decimal.Decimal
		AccruedTotal decimal.Decimal
		PaidTotal    decimal.Decimal
		ExpiredTotal decimal.Decimal
		PendingCount int64
		AccruedCount int64
	}

	offset := (params.Page - 1) * params.Limit
	var rows []posRow
	err := base.Session(&gorm.Session{}).
		Select(`pos_id,
			MAX(point_of_sale) AS point_of_sale,
			MAX(route) AS route,
			COALESCE(SUM(CASE WHEN state = ? THEN amount ELSE 0 END), 0) AS pending_total,
			COALESCE(SUM(CASE WHEN state = ? THEN amount ELSE 0 END), 0) AS accrued_total,
			COALESCE(SUM(CASE WHEN state = ? THEN amount ELSE 0 END), 0) AS paid_total,
			COALESCE(SUM(CASE WHEN state = ? THEN amount ELSE 0 END), 0) AS expired_total,
			COUNT(CASE WHEN state = ? THEN 1 END) AS pending_count,
			COUNT(CASE WHEN state = ? THEN 1 END) AS accrued_count`,
			models.CommissionStatePending,
			models.CommissionStateAccrued,
			models.CommissionStatePaid,
			models.CommissionStateExpired,
			models.CommissionStatePending,
			models.CommissionStateAccrued).
		Group("pos_id").
		Order("pos_id").
		Offset(offset).
		Limit(params.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]POSSummary, 0, len(rows))
	for _, r := range rows {
		credit, err := s.creditBalance(r.POSID)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, POSSummary{
			POSID:         r.POSID,
			PointOfSale:   r.PointOfSale,
			Route:         r.Route,
			PendingTotal:  r.PendingTotal,
			AccruedTotal:  r.AccruedTotal,
			PaidTotal:     r.PaidTotal,
			ExpiredTotal:  r.ExpiredTotal,
			PendingCount:  r.PendingCount,
			AccruedCount:  r.AccruedCount,
			CreditBalance: credit,
		})
	}

	return summaries, total, nil
}

// ListForPOS returns all settleable commissions of one point of sale, oldest
// liquidation month first, for the settlement screen.
func (s *CommissionService) ListForPOS(posID string) ([]models.Commission, error) {
	var commissions []models.Commission
	err := s.db.
		Where("pos_id = ? AND state IN ?", posID, models.SettleableStates).
		Order("liquidation_month ASC NULLS LAST, created_at ASC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// Totals computes the KPI header over an optional route filter.
func (s *CommissionService) Totals(route string) (*KPITotals, error) {
	type totalsRow struct {
		OwedTotal    decimal.Decimal
		PaidTotal    decimal.Decimal
		ExpiredTotal decimal.Decimal
	}

	query := s.db.Model(&models.Commission{})
	if route != "" {
		query = query.Where("route = ?", route)
	}

	var row totalsRow
	err := query.
		Select(`COALESCE(SUM(CASE WHEN state IN ? THEN amount ELSE 0 END), 0) AS owed_total,
			COALESCE(SUM(CASE WHEN state = ? THEN amount ELSE 0 END), 0) AS paid_total,
			COALESCE(SUM(CASE WHEN state = ? THEN amount ELSE 0 END), 0) AS expired_total`,
			models.SettleableStates,
			models.CommissionStatePaid,
			models.CommissionStateExpired).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &KPITotals{
		OwedTotal:    row.OwedTotal,
		PaidTotal:    row.PaidTotal,
		ExpiredTotal: row.ExpiredTotal,
	}, nil
}

// ListRoutes returns the distinct routes present in the commission data.
func (s *CommissionService) ListRoutes() ([]string, error) {
	var routes []string
	err := s.db.Model(&models.Commission{}).
		Where("route <> ''").
		Distinct("route").
		Order("route").
		Pluck("route", &routes).Error
	if err != nil {
		return nil, err
	}
	return routes, nil
}

// ListBatches returns payout history, newest first.
func (s *CommissionService) ListBatches(params utils.PaginationParams) ([]models.PaymentBatch, int64, error) {
	query := s.db.Model(&models.PaymentBatch{})
	if params.Route != "" {
		query = query.Where("route = ?", params.Route)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("pos_id ILIKE ? OR point_of_sale ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []models.PaymentBatch
	err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&batches).Error
	if err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

// GetBatch loads one payout with its commission rows, originals and derived.
func (s *CommissionService) GetBatch(id uuid.UUID) (*models.PaymentBatch, error) {
	var batch models.PaymentBatch
	err := s.db.Preload("Commissions").First(&batch, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &batch, nil
}

// creditBalance nets a POS's accumulated surplus against its recorded credit
// use: surplus adjustments add credit, credit-use rows consume it.
func (s *CommissionService) creditBalance(posID string) (decimal.Decimal, error) {
	type creditRow struct {
		Surplus decimal.Decimal
		Used    decimal.Decimal
	}

	var row creditRow
	err := s.db.Model(&models.Commission{}).
		Where("pos_id = ? AND is_ledger_entry = ?", posID, true).
		Select(`COALESCE(SUM(CASE WHEN ledger_kind = ? THEN amount ELSE 0 END), 0) AS surplus,
			COALESCE(SUM(CASE WHEN ledger_kind = ? THEN amount ELSE 0 END), 0) AS used`,
			models.LedgerKindSurplusAdjustment,
			models.LedgerKindCreditUse).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}

	return row.Surplus.Sub(row.Used), nil
}
