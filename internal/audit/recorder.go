// Package audit appends before/after snapshots of mutated entities to
// the audit log. Snapshots are passed explicitly by the calling handler
// rather than inferred from route metadata.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"saas-platform/internal/model"
	"saas-platform/internal/queue"
	"saas-platform/pkg/logger"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry describes one auditable mutation.
type Entry struct {
	UserID     uint
	TenantID   *uint
	Action     string
	Subject    string
	SubjectID  string
	DataBefore string
	DataAfter  string
	ClientInfo string
}

// Recorder writes audit entries and optionally publishes them to the
// message broker.
type Recorder struct {
	db        *gorm.DB
	publisher *queue.Publisher
}

// NewRecorder creates a recorder. The publisher may be nil, in which
// case entries are only persisted.
func NewRecorder(db *gorm.DB, publisher *queue.Publisher) *Recorder {
	return &Recorder{db: db, publisher: publisher}
}

// Record appends an audit log row. The returned error is informational;
// callers log it and continue, a failed audit write never fails the
// request that caused it.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	log := logger.GetLogger()

	row := model.AuditLog{
		UserID:     e.UserID,
		TenantID:   e.TenantID,
		Action:     e.Action,
		Subject:    e.Subject,
		SubjectID:  e.SubjectID,
		DataBefore: e.DataBefore,
		DataAfter:  e.DataAfter,
		ClientInfo: e.ClientInfo,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		prometheus.AuditRecordCounter.WithLabelValues("error").Inc()
		log.Error("Failed to write audit log",
			zap.String("action", e.Action),
			zap.String("subject", e.Subject),
			zap.Error(err))
		return err
	}
	prometheus.AuditRecordCounter.WithLabelValues("ok").Inc()

	if r.publisher != nil {
		event := queue.AuditEvent{
			UserID:     e.UserID,
			TenantID:   e.TenantID,
			Action:     e.Action,
			Subject:    e.Subject,
			SubjectID:  e.SubjectID,
			ClientInfo: e.ClientInfo,
			RecordedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		}
		// Best effort, already logged by the publisher.
		_ = r.publisher.PublishAuditEvent(ctx, event)
	}

	return nil
}

// Snapshot renders an entity as a JSON string for DataBefore/DataAfter.
// Returns "" when the value cannot be marshaled.
func Snapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// ClientInfo captures the caller's address and user agent as JSON.
func ClientInfo(c echo.Context) string {
	info := map[string]string{
		"ip":         c.RealIP(),
		"user_agent": c.Request().UserAgent(),
	}
	data, _ := json.Marshal(info)
	return string(data)
}
