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

// RoleRequest defines the structure for role creation/update requests
type RoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListRoles handles retrieving roles with pagination and search
func ListRoles(c echo.Context) error {
	log := logger.FromContext(c)

	p := pagination.FromContext(c)
	query := database.GetDB().Model(&model.Role{})
	query = pagination.Search(query, p, "name")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve roles"})
	}

	var roles []model.Role
	if err := pagination.Apply(query, p).Preload("Permissions").Find(&roles).Error; err != nil {
		log.Error("Failed to list roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve roles"})
	}

	return c.JSON(http.StatusOK, pagination.Envelope{
		Data: roles,
		Meta: pagination.NewMeta(total, p),
	})
}

// GetRole handles retrieving a single role by ID
func GetRole(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var role model.Role
	if result := database.GetDB().Preload("Permissions").First(&role, id); result.Error != nil {
		log.Error("Role not found", zap.String("role_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}

	return c.JSON(http.StatusOK, role)
}

// CreateRole handles creating a new role
func CreateRole(c echo.Context) error {
	log := logger.FromContext(c)

	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	var count int64
	database.GetDB().Model(&model.Role{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		log.Warn("Role with this name already exists", zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{"error": "role with this name already exists"})
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&role); result.Error != nil {
		log.Error("Failed to create role", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create role"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionCreate,
		Subject:    "Role",
		SubjectID:  itoa(role.ID),
		DataAfter:  audit.Snapshot(role),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Role created", zap.Uint("role_id", role.ID), zap.String("name", role.Name))
	return c.JSON(http.StatusCreated, role)
}

// UpdateRole handles updating an existing role
func UpdateRole(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var role model.Role
	if result := database.GetDB().First(&role, id); result.Error != nil {
		log.Error("Role not found", zap.String("role_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}
	before := audit.Snapshot(role)

	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if req.Name != "" && req.Name != role.Name {
		var count int64
		database.GetDB().Model(&model.Role{}).
			Where("name = ? AND id <> ?", req.Name, role.ID).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "role with this name already exists"})
		}
		role.Name = req.Name
	}
	if req.Description != "" {
		role.Description = req.Description
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Save(&role).Error; err != nil {
		log.Error("Failed to update role", zap.String("role_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update role"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionUpdate,
		Subject:    "Role",
		SubjectID:  itoa(role.ID),
		DataBefore: before,
		DataAfter:  audit.Snapshot(role),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Role updated", zap.Uint("role_id", role.ID))
	return c.JSON(http.StatusOK, role)
}

// SetRolePermissions replaces the permissions attached to a role
func SetRolePermissions(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var role model.Role
	if result := database.GetDB().Preload("Permissions").First(&role, id); result.Error != nil {
		log.Error("Role not found", zap.String("role_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}
	before := audit.Snapshot(role)

	var req struct {
		PermissionIDs []uint `json:"permission_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var perms []model.Permission
	if len(req.PermissionIDs) > 0 {
		if err := database.GetDB().Find(&perms, req.PermissionIDs).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load permissions"})
		}
		if len(perms) != len(req.PermissionIDs) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown permission id"})
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&role).Association("Permissions").Replace(perms); err != nil {
		log.Error("Failed to set role permissions", zap.String("role_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to set permissions"})
	}
	role.Permissions = perms

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionUpdate,
		Subject:    "Role",
		SubjectID:  itoa(role.ID),
		DataBefore: before,
		DataAfter:  audit.Snapshot(role),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Role permissions replaced",
		zap.Uint("role_id", role.ID),
		zap.Int("permissions", len(perms)))
	return c.JSON(http.StatusOK, role)
}

// DeleteRole handles deleting a role
func DeleteRole(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var role model.Role
	if result := database.GetDB().First(&role, id); result.Error != nil {
		log.Error("Role not found", zap.String("role_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}

	// Refuse to delete a role that is still assigned
	var count int64
	database.GetDB().Model(&model.User{}).Where("role_id = ?", role.ID).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "role is still assigned to users"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&role).Error; err != nil {
		log.Error("Failed to delete role", zap.String("role_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete role"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionDelete,
		Subject:    "Role",
		SubjectID:  itoa(role.ID),
		DataBefore: audit.Snapshot(role),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Role deleted", zap.Uint("role_id", role.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "role deleted"})
}
