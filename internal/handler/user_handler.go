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
	"golang.org/x/crypto/bcrypt"
)

// UserRequest defines the structure for user creation/update requests
type UserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	RoleID   uint   `json:"role_id"`
	TenantID *uint  `json:"tenant_id,omitempty"`
}

// ListUsers handles retrieving users with pagination and search
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)

	p := pagination.FromContext(c)
	query := database.GetDB().Model(&model.User{})
	query = pagination.Search(query, p, "email", "name")

	// Tenant scoping injected by the tenant middleware, if configured
	if tenantID := c.QueryParam("tenantId"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}

	var users []model.User
	if err := pagination.Apply(query, p).Preload("Role").Find(&users).Error; err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}

	return c.JSON(http.StatusOK, pagination.Envelope{
		Data: users,
		Meta: pagination.NewMeta(total, p),
	})
}

// GetUser handles retrieving a single user by ID
func GetUser(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var user model.User
	if result := database.GetDB().Preload("Role").First(&user, id); result.Error != nil {
		log.Error("User not found", zap.String("user_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, user)
}

// CreateUser handles creating a new user
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Email == "" || req.Password == "" || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, password and role_id are required"})
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("User with this email already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	user := model.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashed),
		RoleID:   req.RoleID,
		TenantID: req.TenantID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionCreate,
		Subject:    "User",
		SubjectID:  itoa(user.ID),
		DataAfter:  audit.Snapshot(user),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("User created", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser handles updating an existing user
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var user model.User
	if result := database.GetDB().First(&user, id); result.Error != nil {
		log.Error("User not found", zap.String("user_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	before := audit.Snapshot(user)

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if req.Email != "" && req.Email != user.Email {
		var count int64
		database.GetDB().Model(&model.User{}).
			Where("email = ? AND id <> ?", req.Email, user.ID).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.RoleID != 0 {
		user.RoleID = req.RoleID
	}
	if req.TenantID != nil {
		user.TenantID = req.TenantID
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Save(&user).Error; err != nil {
		log.Error("Failed to update user", zap.String("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionUpdate,
		Subject:    "User",
		SubjectID:  itoa(user.ID),
		DataBefore: before,
		DataAfter:  audit.Snapshot(user),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("User updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, user)
}

// DeleteUser handles deleting a user
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var user model.User
	if result := database.GetDB().First(&user, id); result.Error != nil {
		log.Error("User not found", zap.String("user_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&user).Error; err != nil {
		log.Error("Failed to delete user", zap.String("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete user"})
	}

	_ = auditRecorder.Record(c.Request().Context(), audit.Entry{
		UserID:     actorID(c),
		TenantID:   actorTenant(c),
		Action:     model.ActionDelete,
		Subject:    "User",
		SubjectID:  itoa(user.ID),
		DataBefore: audit.Snapshot(user),
		ClientInfo: audit.ClientInfo(c),
	})

	log.Info("User deleted", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}
