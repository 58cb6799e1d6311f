package handler

import (
	"net/http"
	"time"

	"saas-platform/internal/model"
	"saas-platform/pkg/database"
	"saas-platform/pkg/logger"
	"saas-platform/pkg/pagination"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListAuditLogs handles the read-only audit trail listing. Entries can
// be narrowed by action, subject or user; there is no write surface.
func ListAuditLogs(c echo.Context) error {
	log := logger.FromContext(c)

	p := pagination.FromContext(c)
	query := database.GetDB().Model(&model.AuditLog{})
	query = pagination.Search(query, p, "action", "subject")

	if action := c.QueryParam("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if subject := c.QueryParam("subject"); subject != "" {
		query = query.Where("subject = ?", subject)
	}
	if userID := c.QueryParam("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if tenantID := c.QueryParam("tenantId"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count audit logs", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve audit logs"})
	}

	var entries []model.AuditLog
	if err := pagination.Apply(query, p).Find(&entries).Error; err != nil {
		log.Error("Failed to list audit logs", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve audit logs"})
	}

	return c.JSON(http.StatusOK, pagination.Envelope{
		Data: entries,
		Meta: pagination.NewMeta(total, p),
	})
}

// GetAuditLog handles retrieving a single audit entry by ID
func GetAuditLog(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var entry model.AuditLog
	if result := database.GetDB().First(&entry, id); result.Error != nil {
		log.Error("Audit log not found", zap.String("audit_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "audit log not found"})
	}

	return c.JSON(http.StatusOK, entry)
}
