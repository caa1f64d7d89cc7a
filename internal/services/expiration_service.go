// internal/services/expiration_service.go
package services

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/paydesk/commission-backend/internal/models"
)

// ExpirationService retires stale commissions. Two independent policies feed
// it: a calendar cutover when a newer liquidation month is ingested, and an
// inactivity sweep for points of sale with debt but no payment activity over
// a full billing cycle. Both are idempotent: only Pending and Accrued rows are
// ever selected, and expiration is one-directional.
type ExpirationService struct {
	db        *gorm.DB
	cutoffDay int
}

type ExpirationResult struct {
	ActivePOS    []string `json:"active_pos"`
	ExpiredCount int      `json:"expired_count"`
}

func NewExpirationService(db *gorm.DB, cutoffDay int) *ExpirationService {
	return &ExpirationService{db: db, cutoffDay: sanitizeCutoffDay(cutoffDay)}
}

func sanitizeCutoffDay(day int) int {
	if day < 1 || day > 31 {
		logrus.WithField("cutoff_day", day).Warn("Invalid billing cutoff day, defaulting to 1")
		return 1
	}
	return day
}

// cycleWindow computes the billing cycle window for a reference month. With
// cutoff day 1 the window is the calendar month itself; otherwise it runs from
// day D of the previous month through day D-1 of the reference month, with day
// values clamped to each month's actual length.
func cycleWindow(referenceMonth time.Time, cutoffDay int) (start, end time.Time) {
	ref := monthStart(referenceMonth)

	if cutoffDay <= 1 {
		start = ref
		end = ref.AddDate(0, 1, -1)
		return start, end
	}

	prev := ref.AddDate(0, -1, 0)
	start = clampedDay(prev, cutoffDay)
	end = clampedDay(ref, cutoffDay-1)
	return start, end
}

// clampedDay returns the given day within the month of base, clamped to the
// month's last day.
func clampedDay(base time.Time, day int) time.Time {
	last := base.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(base.Year(), base.Month(), day, 0, 0, 0, 0, base.Location())
}

// ExpireInactive runs the inactivity policy for the given reference month: a
// POS with Pending/Accrued debt but no payment batch inside the cycle window
// has all its settleable commissions expired with reason "no activity".
// Returns the active POS set for the cutover policy to consume.
func (s *ExpirationService) ExpireInactive(referenceMonth time.Time) (*ExpirationResult, error) {
	var result *ExpirationResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.expireInactiveTx(tx, referenceMonth)
		return err
	})
	return result, err
}

func (s *ExpirationService) expireInactiveTx(tx *gorm.DB, referenceMonth time.Time) (*ExpirationResult, error) {
	windowStart, windowEnd := cycleWindow(referenceMonth, s.cutoffDay)
	// The window end is inclusive: activity on the last day still counts.
	windowLimit := windowEnd.AddDate(0, 0, 1)

	var activePOS []string
	if err := tx.Model(&models.PaymentBatch{}).
		Where("created_at >= ? AND created_at < ?", windowStart, windowLimit).
		Distinct().
		Pluck("pos_id", &activePOS).Error; err != nil {
		return nil, err
	}

	var indebtedPOS []string
	if err := tx.Model(&models.Commission{}).
		Where("state IN ?", models.SettleableStates).
		Distinct().
		Pluck("pos_id", &indebtedPOS).Error; err != nil {
		return nil, err
	}

	active := make(map[string]bool, len(activePOS))
	for _, pos := range activePOS {
		active[pos] = true
	}

	var inactivePOS []string
	for _, pos := range indebtedPOS {
		if !active[pos] {
			inactivePOS = append(inactivePOS, pos)
		}
	}

	expired := 0
	if len(inactivePOS) > 0 {
		res := tx.Model(&models.Commission{}).
			Where("pos_id IN ? AND state IN ?", inactivePOS, models.SettleableStates).
			Updates(map[string]interface{}{
				"state":       models.CommissionStateExpired,
				"observation": models.ExpiredReasonNoActivity,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		expired = int(res.RowsAffected)
	}

	logrus.WithFields(logrus.Fields{
		"reference_month": referenceMonth.Format("2006-01"),
		"window_start":    windowStart.Format("2006-01-02"),
		"window_end":      windowEnd.Format("2006-01-02"),
		"active_pos":      len(activePOS),
		"expired_rows":    expired,
	}).Info("Inactivity expiration pass completed")

	return &ExpirationResult{ActivePOS: activePOS, ExpiredCount: expired}, nil
}

// ExpireOnCutover runs when an ingestion brings a liquidation month newer than
// anything stored. previousLatestMonth is the latest month on record before
// the new batch, passed in explicitly by the coordinator. First the
// inactivity pass retires POS that sat out the closing cycle, then the
// commissions of POS that were active are expired too, with the month-change
// reason: the new cycle starts clean either way.
func (s *ExpirationService) ExpireOnCutover(previousLatestMonth time.Time) (int, error) {
	total := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inactiveResult, err := s.expireInactiveTx(tx, previousLatestMonth)
		if err != nil {
			return err
		}
		total = inactiveResult.ExpiredCount

		if len(inactiveResult.ActivePOS) == 0 {
			return nil
		}

		res := tx.Model(&models.Commission{}).
			Where("pos_id IN ? AND state IN ?", inactiveResult.ActivePOS, models.SettleableStates).
			Updates(map[string]interface{}{
				"state":       models.CommissionStateExpired,
				"observation": models.ExpiredReasonMonthChanged,
			})
		if res.Error != nil {
			return res.Error
		}
		total += int(res.RowsAffected)
		return nil
	})

	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"previous_month": previousLatestMonth.Format("2006-01"),
		"expired_rows":   total,
	}).Info("Cutover expiration completed")

	return total, nil
}

// LatestLiquidationMonth is the single source-of-truth query for cycle
// ordering: the newest liquidation month across all stored commissions, or nil
// when the table is empty.
func (s *ExpirationService) LatestLiquidationMonth() (*time.Time, error) {
	var latest models.Commission
	err := s.db.
		Where("liquidation_month IS NOT NULL").
		Order("liquidation_month DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return latest.LiquidationMonth, nil
}
