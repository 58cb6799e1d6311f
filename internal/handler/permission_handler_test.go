package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"saas-platform/internal/audit"
	"saas-platform/pkg/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	database.SetDB(gdb)
	Initialize(audit.NewRecorder(gdb, nil), nil)
	return mock
}

func TestCreatePermissionDuplicateConflict(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "permissions"`)).
		WithArgs("read", "User").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	e := echo.New()
	e.POST("/api/permissions", CreatePermission)

	req := httptest.NewRequest(http.MethodPost, "/api/permissions",
		strings.NewReader(`{"action":"read","subject":"User"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePermissionMissingFields(t *testing.T) {
	setupMockDB(t)

	e := echo.New()
	e.POST("/api/permissions", CreatePermission)

	req := httptest.NewRequest(http.MethodPost, "/api/permissions",
		strings.NewReader(`{"action":"read"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePermissionSuccess(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "permissions"`)).
		WithArgs("read", "User").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "permissions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()
	// audit trail row for the mutation
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "audit_logs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	e := echo.New()
	e.POST("/api/permissions", CreatePermission)

	req := httptest.NewRequest(http.MethodPost, "/api/permissions",
		strings.NewReader(`{"action":"read","subject":"User"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"read"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPermissionNotFound(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "permissions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	e := echo.New()
	e.GET("/api/permissions/:id", GetPermission)

	req := httptest.NewRequest(http.MethodGet, "/api/permissions/99", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
