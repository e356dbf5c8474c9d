package aclkit

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ARO and ACO kind identifiers as stored in the permissions table.
// The string values are part of the persisted schema and must not change.
const (
	AroUser  = "User"
	AroGroup = "Group"

	AcoResource = "Resource"
)

// IsValidAro reports whether kind is a known ARO kind.
func IsValidAro(kind string) bool {
	return kind == AroUser || kind == AroGroup
}

// PermissionType is the ordered capability scale applied to a resource.
// The integer encoding {1, 7, 15} is part of the persisted schema and must
// remain stable for backward compatibility with existing stored rows.
type PermissionType int

const (
	PermissionRead   PermissionType = 1
	PermissionUpdate PermissionType = 7
	PermissionOwner  PermissionType = 15
)

// IsValid reports whether t is one of the three defined permission types.
func (t PermissionType) IsValid() bool {
	return t == PermissionRead || t == PermissionUpdate || t == PermissionOwner
}

// Allows reports whether a holder of t may perform operations requiring
// required. Higher types imply all lower capabilities.
func (t PermissionType) Allows(required PermissionType) bool {
	return t >= required
}

// String returns the type name, or "unknown" for values outside the scale.
func (t PermissionType) String() string {
	switch t {
	case PermissionRead:
		return "read"
	case PermissionUpdate:
		return "update"
	case PermissionOwner:
		return "owner"
	}
	return "unknown"
}

// User is an account that can hold permissions and belong to groups.
// Deleted is a tombstone: the row is retained for referential integrity,
// set only by the cascading delete. Active flips to true once the user
// completes setup.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Username  string    `bun:"username,notnull"`
	FirstName string    `bun:"first_name"`
	LastName  string    `bun:"last_name"`
	Role      string    `bun:"role,notnull"`
	Active    bool      `bun:"active,notnull,default:false"`
	Deleted   bool      `bun:"deleted,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// DisplayName returns the value used for alphabetical ordering in share
// candidate lists.
func (u *User) DisplayName() string { return u.Username }

// Group is a named collection of users. Soft-deleted when it becomes empty
// as a side effect of user removal, or explicitly.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name      string    `bun:"name,notnull"`
	Deleted   bool      `bun:"deleted,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// DisplayName returns the value used for alphabetical ordering in share
// candidate lists.
func (g *Group) DisplayName() string { return g.Name }

// GroupUser is the membership of a user in a group. IsAdmin marks group
// managers. Unique per (group, user) pair.
type GroupUser struct {
	bun.BaseModel `bun:"table:groups_users,alias:gu"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	GroupID   string    `bun:"group_id,notnull,type:uuid"`
	UserID    string    `bun:"user_id,notnull,type:uuid"`
	IsAdmin   bool      `bun:"is_admin,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Resource is a protected entity. Access to it is never stored on the
// resource itself, always via permission rows.
type Resource struct {
	bun.BaseModel `bun:"table:resources,alias:r"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name      string    `bun:"name,notnull"`
	Deleted   bool      `bun:"deleted,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Permission is an ACL row granting one ARO (user or group) a permission
// type on one resource. One row per (subject, resource) pair.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID            string         `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Aco           string         `bun:"aco,notnull"`
	AcoForeignKey string         `bun:"aco_foreign_key,notnull,type:uuid"`
	Aro           string         `bun:"aro,notnull"`
	AroForeignKey string         `bun:"aro_foreign_key,notnull,type:uuid"`
	Type          PermissionType `bun:"type,notnull"`
	CreatedAt     time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}

// Secret is a per (resource, user) encrypted payload. Unique per pair; it
// may only exist while the user retains at least Read access.
type Secret struct {
	bun.BaseModel `bun:"table:secrets,alias:s"`

	ID         string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ResourceID string    `bun:"resource_id,notnull,type:uuid"`
	UserID     string    `bun:"user_id,notnull,type:uuid"`
	Data       string    `bun:"data,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Favorite marks a resource as favorite for a user. Independent of access
// rights; removed by the cascade when the user is deleted.
type Favorite struct {
	bun.BaseModel `bun:"table:favorites,alias:f"`

	ID         string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID     string    `bun:"user_id,notnull,type:uuid"`
	ResourceID string    `bun:"resource_id,notnull,type:uuid"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Tag is a label that users attach to resources. A tag with no remaining
// associations is garbage collected.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID   string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Slug string `bun:"slug,notnull"`
}

// NormalizeSlug lowercases and trims a tag slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ResourceTag is a personal tag association: it belongs to the user who
// tagged the resource and is removed with them.
type ResourceTag struct {
	bun.BaseModel `bun:"table:resources_tags,alias:rt"`

	ID         string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ResourceID string    `bun:"resource_id,notnull,type:uuid"`
	TagID      string    `bun:"tag_id,notnull,type:uuid"`
	UserID     string    `bun:"user_id,notnull,type:uuid"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AccessAuditLog records permission changes and deletions for compliance
// and debugging.
type AccessAuditLog struct {
	bun.BaseModel `bun:"table:access_audit_log,alias:aal"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action
	ActorID string `bun:"actor_id,notnull"`

	// What action was performed
	Action string `bun:"action,notnull"` // "granted", "revoked", "user_deleted", ...

	// Target of the action
	Aro            string         `bun:"aro"`
	AroForeignKey  string         `bun:"aro_foreign_key"`
	AcoForeignKey  string         `bun:"aco_foreign_key"`
	PermissionType PermissionType `bun:"permission_type"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`
}

// AuditAction represents the type of action in the audit log.
type AuditAction string

const (
	AuditActionGranted         AuditAction = "granted"
	AuditActionRevoked         AuditAction = "revoked"
	AuditActionUserDeleted     AuditAction = "user_deleted"
	AuditActionGroupDeleted    AuditAction = "group_deleted"
	AuditActionResourceDeleted AuditAction = "resource_deleted"
)

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID        string
	Action         AuditAction
	Aro            string
	AroForeignKey  string
	AcoForeignKey  string
	PermissionType PermissionType
	IPAddress      string
	UserAgent      string
	RequestID      string
}

// ToModel converts an AuditEntry to an AccessAuditLog model.
func (e *AuditEntry) ToModel() *AccessAuditLog {
	return &AccessAuditLog{
		ActorID:        e.ActorID,
		Action:         string(e.Action),
		Aro:            e.Aro,
		AroForeignKey:  e.AroForeignKey,
		AcoForeignKey:  e.AcoForeignKey,
		PermissionType: e.PermissionType,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		RequestID:      e.RequestID,
		Timestamp:      time.Now(),
	}
}
