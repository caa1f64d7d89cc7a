// internal/services/ingestion_service.go
package services

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/paydesk/commission-backend/internal/config"
	"github.com/paydesk/commission-backend/internal/ingest"
	"github.com/paydesk/commission-backend/internal/jobs"
	"github.com/paydesk/commission-backend/internal/models"
)

// IngestionService coordinates monthly bulk uploads: it accepts a file,
// replies immediately, and processes in the background. Processing runs the
// cutover expiration when the file brings a newer liquidation month, then
// bulk-inserts the new commission rows as the last, single atomic step.
type IngestionService struct {
	db           *gorm.DB
	config       *config.Config
	queue        *jobs.Queue
	normalizer   ingest.Normalizer
	expiration   *ExpirationService
	notification *NotificationService
}

func NewIngestionService(db *gorm.DB, cfg *config.Config, queue *jobs.Queue, normalizer ingest.Normalizer, expiration *ExpirationService, notification *NotificationService) *IngestionService {
	return &IngestionService{
		db:           db,
		config:       cfg,
		queue:        queue,
		normalizer:   normalizer,
		expiration:   expiration,
		notification: notification,
	}
}

// Enqueue records the ingestion batch and schedules background processing of
// the already-saved temporary file. The caller gets the batch back right
// away; the outcome is delivered out-of-band by notification.
func (s *IngestionService) Enqueue(tempPath, sourceFileKey string, operator *models.Operator) (*models.IngestionBatch, error) {
	var operatorID *uuid.UUID
	if operator != nil {
		operatorID = &operator.ID
	}

	batch := &models.IngestionBatch{
		CreatedByID:   operatorID,
		Status:        models.IngestionStatusProcessing,
		SourceFileKey: sourceFileKey,
	}
	if err := s.db.Create(batch).Error; err != nil {
		return nil, fmt.Errorf("failed to create ingestion batch: %w", err)
	}

	batchID := batch.ID
	if err := s.queue.Enqueue("ingestion:"+batchID.String(), func() error {
		return s.Process(batchID, tempPath)
	}); err != nil {
		s.markError(batchID, "could not schedule processing: "+err.Error())
		return nil, err
	}

	return batch, nil
}

// Process is the background job body. It is safe to re-run: a batch already
// out of the processing state is skipped.
func (s *IngestionService) Process(batchID uuid.UUID, tempPath string) error {
	defer cleanupTempFile(tempPath)

	var batch models.IngestionBatch
	if err := s.db.First(&batch, "id = ?", batchID).Error; err != nil {
		return err
	}
	if batch.Status != models.IngestionStatusProcessing {
		logrus.WithField("ingestion_id", batchID).Warn("Ingestion batch already processed, skipping")
		return nil
	}

	rows, err := s.normalizer.Normalize(tempPath)
	if err != nil {
		// A file that cannot be parsed will not parse on retry either.
		s.markError(batchID, err.Error())
		s.notifyOutcome(&batch, 0, 0, err)
		return nil
	}
	if len(rows) == 0 {
		s.markError(batchID, "no valid commission rows found in file")
		s.notifyOutcome(&batch, 0, 0, fmt.Errorf("no valid commission rows found in file"))
		return nil
	}

	detectedMonth := detectMonth(rows)

	// Cutover check against the single source-of-truth latest month, passed
	// explicitly into the expiration policy.
	expiredCount := 0
	if detectedMonth != nil {
		latest, err := s.expiration.LatestLiquidationMonth()
		if err != nil {
			return err
		}
		if latest != nil && detectedMonth.After(*latest) {
			logrus.WithFields(logrus.Fields{
				"detected_month": detectedMonth.Format("2006-01"),
				"latest_month":   latest.Format("2006-01"),
			}).Info("Newer liquidation month detected, expiring previous cycle")

			expiredCount, err = s.expiration.ExpireOnCutover(*latest)
			if err != nil {
				return err
			}
		}
	}

	advisors, err := s.resolveAdvisors(rows)
	if err != nil {
		return err
	}

	commissions := make([]models.Commission, 0, len(rows))
	for _, row := range rows {
		state := models.CommissionStatePending
		if row.AccruedHint {
			state = models.CommissionStateAccrued
		}

		var advisorID *uuid.UUID
		if id, ok := advisors[row.AdvisorIdentifier]; ok {
			advisorID = &id
		}

		commissions = append(commissions, models.Commission{
			POSID:             row.POSID,
			PointOfSale:       row.PointOfSale,
			Route:             row.Route,
			Product:           row.Product,
			ICCID:             row.ICCID,
			AdvisorIdentifier: row.AdvisorIdentifier,
			AdvisorID:         advisorID,
			Amount:            row.Amount,
			LiquidationMonth:  row.LiquidationMonth,
			PaymentMonth:      row.PaymentMonth,
			State:             state,
			IngestionID:       &batchID,
		})
	}

	// The insert is the last, single atomic step: a failure leaves no partial
	// rows behind.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(commissions, s.config.Commission.IngestBatchSize).Error
	})
	if err != nil {
		s.markError(batchID, err.Error())
		s.notifyOutcome(&batch, 0, expiredCount, err)
		return nil
	}

	updates := map[string]interface{}{
		"status":        models.IngestionStatusSuccess,
		"created_count": len(commissions),
		"expired_count": expiredCount,
	}
	if detectedMonth != nil {
		updates["detected_month"] = *detectedMonth
	}
	if err := s.db.Model(&models.IngestionBatch{}).Where("id = ?", batchID).Updates(updates).Error; err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"ingestion_id": batchID,
		"created":      len(commissions),
		"expired":      expiredCount,
	}).Info("Ingestion completed")

	batch.DetectedMonth = detectedMonth
	s.notifyOutcome(&batch, len(commissions), expiredCount, nil)
	return nil
}

// GetBatch returns the audit record of one ingestion.
func (s *IngestionService) GetBatch(id uuid.UUID) (*models.IngestionBatch, error) {
	var batch models.IngestionBatch
	if err := s.db.First(&batch, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewValidationError("ingestion batch not found")
		}
		return nil, err
	}
	return &batch, nil
}

func (s *IngestionService) markError(batchID uuid.UUID, detail string) {
	if err := s.db.Model(&models.IngestionBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"status":       models.IngestionStatusError,
			"error_detail": detail,
		}).Error; err != nil {
		logrus.WithError(err).Error("Failed to mark ingestion batch as errored")
	}
}

// notifyOutcome sends the out-of-band summary. Delivery failure never affects
// the ingestion result.
func (s *IngestionService) notifyOutcome(batch *models.IngestionBatch, created, expired int, cause error) {
	if s.notification == nil {
		return
	}
	if err := s.notification.SendIngestionSummary(batch, created, expired, cause); err != nil {
		logrus.WithError(err).Warn("Failed to send ingestion summary notification")
	}
}

// resolveAdvisors maps raw advisor identifiers from the file to known
// operator accounts by username, in one query.
func (s *IngestionService) resolveAdvisors(rows []ingest.Row) (map[string]uuid.UUID, error) {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, row := range rows {
		if row.AdvisorIdentifier == "" || seen[row.AdvisorIdentifier] {
			continue
		}
		seen[row.AdvisorIdentifier] = true
		names = append(names, row.AdvisorIdentifier)
	}
	if len(names) == 0 {
		return map[string]uuid.UUID{}, nil
	}

	var operators []models.Operator
	if err := s.db.Where("username IN ?", names).Find(&operators).Error; err != nil {
		return nil, err
	}

	resolved := make(map[string]uuid.UUID, len(operators))
	for _, op := range operators {
		resolved[op.Username] = op.ID
	}
	return resolved, nil
}

// detectMonth picks the batch's reference month: the first liquidation month
// present in the normalized rows.
func detectMonth(rows []ingest.Row) *time.Time {
	for _, row := range rows {
		if row.LiquidationMonth != nil {
			return row.LiquidationMonth
		}
	}
	return nil
}

// cleanupTempFile removes the uploaded temporary file with a best-effort
// retry loop, independent of whether processing succeeded.
func cleanupTempFile(path string) {
	if path == "" {
		return
	}
	const attempts = 5
	for i := 0; i < attempts; i++ {
		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			return
		}
		if i < attempts-1 {
			time.Sleep(2 * time.Second)
			continue
		}
		logrus.WithError(err).WithField("path", path).Error("Could not remove temporary upload")
	}
}
