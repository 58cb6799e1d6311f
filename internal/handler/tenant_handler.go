package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"saas-platform/internal/audit"
	"saas-platform/internal/model"
	"saas-platform/internal/provision"
	"saas-platform/pkg/database"
	"saas-platform/pkg/logger"
	"saas-platform/pkg/pagination"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantRequest defines the structure for tenant creation requests
type TenantRequest struct {
	Name        string `json:"name"`
	SchemaName  string `json:"schema_name"`
	Description string `json:"description"`
}

// CreateTenant provisions a new tenant together with its dedicated
// database schema.
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.SchemaName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and schema_name are required"})
	}

	tenant, err := provisioner.CreateTenant(c.Request().Context(), req.Name, req.SchemaName, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, provision.ErrTenantExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "tenant name or schema already exists"})
		case errors.Is(err, provision.ErrInvalidSchemaName):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "schema name must be a lowercase identifier"})
		default:
			log.Error("Tenant provisioning failed", zap.String("name", req.Name), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create tenant"})
		}
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   &tenant.ID,
		Action:     model.ActionCreate,
		Subject:    "Tenant",
		SubjectID:  itoa(tenant.ID),
		DataAfter:  audit.Snapshot(tenant),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Tenant created",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("schema", tenant.SchemaName))
	return c.JSON(http.StatusCreated, tenant)
}

// ListTenants handles retrieving tenants with pagination and search
func ListTenants(c echo.Context) error {
	log := logger.FromContext(c)

	p := pagination.FromContext(c)
	query := database.GetDB().Model(&model.Tenant{})
	query = pagination.Search(query, p, "name", "schema_name")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tenants"})
	}

	var tenants []model.Tenant
	if err := pagination.Apply(query, p).Find(&tenants).Error; err != nil {
		log.Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tenants"})
	}

	return c.JSON(http.StatusOK, pagination.Envelope{
		Data: tenants,
		Meta: pagination.NewMeta(total, p),
	})
}

// GetTenant handles retrieving a single tenant by ID
func GetTenant(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	prometheus.RecordTenantOperation("access")

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		log.Error("Tenant not found", zap.String("tenant_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant drops the tenant schema and removes the tenant row.
func DeleteTenant(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	// Snapshot before removal for the audit trail
	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	if err := provisioner.RemoveTenant(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, provision.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Tenant removal failed", zap.Uint64("tenant_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to remove tenant"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   &tenant.ID,
		Action:     model.ActionDelete,
		Subject:    "Tenant",
		SubjectID:  itoa(tenant.ID),
		DataBefore: audit.Snapshot(tenant),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("Tenant deleted",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("schema", tenant.SchemaName))
	return c.JSON(http.StatusOK, echo.Map{"message": "tenant deleted"})
}
