package handler

import (
	"net/http"
	"time"

	"saas-platform/internal/audit"
	"saas-platform/internal/model"
	"saas-platform/pkg/database"
	"saas-platform/pkg/logger"
	"saas-platform/pkg/pagination"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PermissionRequest defines the structure for permission creation requests
type PermissionRequest struct {
	Action  string `json:"action"`
	Subject string `json:"subject"`
}

// ListPermissions handles retrieving permissions with pagination and search
func ListPermissions(c echo.Context) error {
	log := logger.FromContext(c)

	p := pagination.FromContext(c)
	query := database.GetDB().Model(&model.Permission{})
	query = pagination.Search(query, p, "action", "subject")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count permissions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve permissions"})
	}

	var perms []model.Permission
	if err := pagination.Apply(query, p).Find(&perms).Error; err != nil {
		log.Error("Failed to list permissions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve permissions"})
	}

	return c.JSON(http.StatusOK, pagination.Envelope{
		Data: perms,
		Meta: pagination.NewMeta(total, p),
	})
}

// GetPermission handles retrieving a single permission by ID
func GetPermission(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var perm model.Permission
	if result := database.GetDB().First(&perm, id); result.Error != nil {
		log.Error("Permission not found", zap.String("permission_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
	}

	return c.JSON(http.StatusOK, perm)
}

// CreatePermission handles creating a new permission. The
// (action, subject) pair is unique; duplicates are rejected.
func CreatePermission(c echo.Context) error {
	log := logger.FromContext(c)

	var req PermissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Action == "" || req.Subject == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action and subject are required"})
	}

	var count int64
	database.GetDB().Model(&model.Permission{}).
		Where("action = ? AND subject = ?", req.Action, req.Subject).Count(&count)
	if count > 0 {
		log.Warn("Permission already exists",
			zap.String("action", req.Action),
			zap.String("subject", req.Subject))
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission with this action and subject already exists"})
	}

	perm := model.Permission{
		Action:  req.Action,
		Subject: req.Subject,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&perm); result.Error != nil {
		log.Error("Failed to create permission", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create permission"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionCreate,
		Subject:    "Permission",
		SubjectID:  itoa(perm.ID),
		DataAfter:  audit.Snapshot(perm),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Permission created",
		zap.Uint("permission_id", perm.ID),
		zap.String("action", perm.Action),
		zap.String("subject", perm.Subject))
	return c.JSON(http.StatusCreated, perm)
}

// DeletePermission handles deleting a permission
func DeletePermission(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var perm model.Permission
	if result := database.GetDB().First(&perm, id); result.Error != nil {
		log.Error("Permission not found", zap.String("permission_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "permission not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&perm).Error; err != nil {
		log.Error("Failed to delete permission", zap.String("permission_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete permission"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionDelete,
		Subject:    "Permission",
		SubjectID:  itoa(perm.ID),
		DataBefore: audit.Snapshot(perm),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Permission deleted", zap.Uint("permission_id", perm.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "permission deleted"})
}
