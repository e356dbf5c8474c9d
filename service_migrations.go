package aclkit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for ACLKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "aclkit-001",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    username TEXT NOT NULL,
                    first_name TEXT,
                    last_name TEXT,
                    role TEXT NOT NULL DEFAULT 'user',
                    active BOOLEAN NOT NULL DEFAULT FALSE,
                    deleted BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_live
                    ON users (username) WHERE deleted = FALSE`,
		},
		{
			ID:          "aclkit-002",
			Description: "Create groups table",
			SQL: `
                CREATE TABLE IF NOT EXISTS groups (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL,
                    deleted BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "aclkit-003",
			Description: "Create groups_users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS groups_users (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    group_id UUID NOT NULL,
                    user_id UUID NOT NULL,
                    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    UNIQUE (group_id, user_id)
                );
                CREATE INDEX IF NOT EXISTS idx_groups_users_user
                    ON groups_users (user_id)`,
		},
		{
			ID:          "aclkit-004",
			Description: "Create resources table",
			SQL: `
                CREATE TABLE IF NOT EXISTS resources (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL,
                    deleted BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "aclkit-005",
			Description: "Create permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permissions (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    aco TEXT NOT NULL DEFAULT 'Resource',
                    aco_foreign_key UUID NOT NULL,
                    aro TEXT NOT NULL,
                    aro_foreign_key UUID NOT NULL,
                    type INTEGER NOT NULL,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp,
                    UNIQUE (aco_foreign_key, aro_foreign_key)
                );
                CREATE INDEX IF NOT EXISTS idx_permissions_aro
                    ON permissions (aro_foreign_key)`,
		},
		{
			ID:          "aclkit-006",
			Description: "Create secrets table",
			SQL: `
                CREATE TABLE IF NOT EXISTS secrets (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    resource_id UUID NOT NULL,
                    user_id UUID NOT NULL,
                    data TEXT NOT NULL,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp,
                    UNIQUE (resource_id, user_id)
                )`,
		},
		{
			ID:          "aclkit-007",
			Description: "Create favorites table",
			SQL: `
                CREATE TABLE IF NOT EXISTS favorites (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    user_id UUID NOT NULL,
                    resource_id UUID NOT NULL,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    UNIQUE (user_id, resource_id)
                )`,
		},
		{
			ID:          "aclkit-008",
			Description: "Create tags and resources_tags tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS tags (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    slug TEXT NOT NULL UNIQUE
                );
                CREATE TABLE IF NOT EXISTS resources_tags (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    resource_id UUID NOT NULL,
                    tag_id UUID NOT NULL,
                    user_id UUID NOT NULL,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    UNIQUE (resource_id, tag_id, user_id)
                )`,
		},
		{
			ID:          "aclkit-009",
			Description: "Create access_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS access_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL DEFAULT '',
                    action TEXT NOT NULL,
                    aro TEXT,
                    aro_foreign_key TEXT,
                    aco_foreign_key TEXT,
                    permission_type INTEGER,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                )`,
		},
	}
}
