// Package provision manages the per-tenant schema lifecycle: creating
// the tenant row, its dedicated Postgres schema with baseline tables,
// and tearing both down again.
package provision

import (
	"context"
	"fmt"
	"regexp"

	"saas-platform/internal/model"
	"saas-platform/pkg/logger"
	"saas-platform/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Schema names end up interpolated into DDL, so only plain lowercase
// identifiers are accepted. Postgres identifiers max out at 63 bytes.
var schemaNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Provisioner creates and removes tenants together with their schemas.
type Provisioner struct {
	db *gorm.DB
}

func NewProvisioner(db *gorm.DB) *Provisioner {
	return &Provisioner{db: db}
}

// ValidateSchemaName rejects anything that is not a plain lowercase
// identifier. Must be called before the name reaches any DDL.
func ValidateSchemaName(schema string) error {
	if !schemaNameRe.MatchString(schema) {
		return ErrInvalidSchemaName
	}
	return nil
}

// CreateTenant inserts the tenant row, then creates the dedicated
// schema and its baseline tables with the two seed roles. The row
// insert and the DDL do not share a transaction: if the DDL fails the
// tenant row stays behind and the partial state is logged, not rolled
// back.
func (p *Provisioner) CreateTenant(ctx context.Context, name, schema, description string) (*model.Tenant, error) {
	log := logger.GetLogger()
	prometheus.RecordTenantOperation("create")

	if err := ValidateSchemaName(schema); err != nil {
		return nil, err
	}

	var count int64
	if err := p.db.WithContext(ctx).Model(&model.Tenant{}).
		Where("name = ? OR schema_name = ?", name, schema).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrTenantExists
	}

	tenant := model.Tenant{
		Name:        name,
		SchemaName:  schema,
		Description: description,
		Active:      true,
	}
	if err := p.db.WithContext(ctx).Create(&tenant).Error; err != nil {
		return nil, err
	}

	for _, stmt := range schemaStatements(schema) {
		if err := p.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			log.Error("Tenant schema provisioning failed, tenant row left behind",
				zap.Uint("tenant_id", tenant.ID),
				zap.String("schema", schema),
				zap.Error(err))
			return nil, fmt.Errorf("failed to provision schema %q: %w", schema, err)
		}
	}

	prometheus.ActiveTenantsGauge.Inc()
	log.Info("Tenant provisioned",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("name", name),
		zap.String("schema", schema))

	return &tenant, nil
}

// RemoveTenant drops the tenant schema with everything in it, then
// deletes the tenant row. The two steps are not transactional either.
func (p *Provisioner) RemoveTenant(ctx context.Context, id uint) error {
	log := logger.GetLogger()
	prometheus.RecordTenantOperation("remove")

	var tenant model.Tenant
	if err := p.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrTenantNotFound
		}
		return err
	}

	drop := fmt.Sprintf(`DROP SCHEMA IF EXISTS "%s" CASCADE`, tenant.SchemaName)
	if err := p.db.WithContext(ctx).Exec(drop).Error; err != nil {
		log.Error("Failed to drop tenant schema",
			zap.Uint("tenant_id", tenant.ID),
			zap.String("schema", tenant.SchemaName),
			zap.Error(err))
		return err
	}

	if err := p.db.WithContext(ctx).Unscoped().Delete(&tenant).Error; err != nil {
		log.Error("Schema dropped but tenant row deletion failed",
			zap.Uint("tenant_id", tenant.ID),
			zap.Error(err))
		return err
	}

	prometheus.ActiveTenantsGauge.Dec()
	log.Info("Tenant removed",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("schema", tenant.SchemaName))

	return nil
}

// schemaStatements returns the DDL run when provisioning a tenant
// schema. The schema name is interpolated directly and must have been
// validated by ValidateSchemaName.
func schemaStatements(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA "%s"`, schema),
		fmt.Sprintf(`CREATE TABLE "%s".roles (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, schema),
		fmt.Sprintf(`CREATE TABLE "%s".permissions (
			id BIGSERIAL PRIMARY KEY,
			action VARCHAR(50) NOT NULL,
			subject VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (action, subject)
		)`, schema),
		fmt.Sprintf(`CREATE TABLE "%s".role_permissions (
			role_id BIGINT NOT NULL REFERENCES "%s".roles(id) ON DELETE CASCADE,
			permission_id BIGINT NOT NULL REFERENCES "%s".permissions(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, permission_id)
		)`, schema, schema, schema),
		fmt.Sprintf(`CREATE TABLE "%s".users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(100) NOT NULL UNIQUE,
			name VARCHAR(100),
			password VARCHAR(255),
			role_id BIGINT REFERENCES "%s".roles(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, schema, schema),
		fmt.Sprintf(`INSERT INTO "%s".roles (name, description) VALUES
			('admin', 'Tenant administrator'),
			('user', 'Tenant user')`, schema),
	}
}
