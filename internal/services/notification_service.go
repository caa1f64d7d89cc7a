// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/paydesk/commission-backend/internal/config"
	"github.com/paydesk/commission-backend/internal/models"
)

// NotificationService delivers out-of-band summaries of background work.
// Delivery is best-effort only: callers log failures and move on.
type NotificationService struct {
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(config *config.Config) *NotificationService {
	return &NotificationService{
		config: config,
	}
}

// SendIngestionSummary mails the admin the outcome of an ingestion run. A nil
// cause means success.
func (s *NotificationService) SendIngestionSummary(batch *models.IngestionBatch, created, expired int, cause error) error {
	if s.config.Email.AdminEmail == "" {
		logrus.WithField("ingestion_id", batch.ID).Debug("No admin email configured, skipping ingestion summary")
		return nil
	}

	detectedMonth := "unknown"
	if batch.DetectedMonth != nil {
		detectedMonth = batch.DetectedMonth.Format("2006-01")
	}

	data := map[string]interface{}{
		"IngestionID":   batch.ID,
		"DetectedMonth": detectedMonth,
		"CreatedCount":  created,
		"ExpiredCount":  expired,
	}

	var tmpl EmailTemplate
	var subject string
	if cause != nil {
		data["Error"] = cause.Error()
		tmpl = s.getEmailTemplate("ingestion_failed")
		subject = "Commission ingestion failed"
	} else {
		tmpl = s.getEmailTemplate("ingestion_summary")
		subject = fmt.Sprintf("Commission ingestion completed - %s", detectedMonth)
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(s.config.Email.AdminEmail, subject, body)
}

// SendExpirationSummary mails the admin after a scheduled cutoff-day run.
func (s *NotificationService) SendExpirationSummary(referenceMonth string, expired int) error {
	if s.config.Email.AdminEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"ReferenceMonth": referenceMonth,
		"ExpiredCount":   expired,
	}

	tmpl := s.getEmailTemplate("expiration_summary")
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(s.config.Email.AdminEmail, "Inactivity expiration completed", body)
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email delivery skipped, SMTP not configured")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"ingestion_summary": {
			Subject: "Commission ingestion completed",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Ingestion completed</h2>
	<p>Batch {{.IngestionID}} for month {{.DetectedMonth}} finished.</p>
	<ul>
		<li>Commissions created: {{.CreatedCount}}</li>
		<li>Commissions expired on cutover: {{.ExpiredCount}}</li>
	</ul>
</body>
</html>`,
		},
		"ingestion_failed": {
			Subject: "Commission ingestion failed",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Ingestion failed</h2>
	<p>Batch {{.IngestionID}} could not be processed.</p>
	<p>Error: {{.Error}}</p>
	<p>No commission rows were created.</p>
</body>
</html>`,
		},
		"expiration_summary": {
			Subject: "Inactivity expiration completed",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Cutoff-day expiration completed</h2>
	<p>Reference month: {{.ReferenceMonth}}</p>
	<p>Commissions expired: {{.ExpiredCount}}</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}

	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
