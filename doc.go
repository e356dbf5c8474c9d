// Package aclkit provides graduated access control for shared resources,
// with transitive resolution through group membership and a transactional
// cascading soft-delete that preserves referential integrity.
//
// # Core Concepts
//
// ARO (Access Request Object): an entity that can be granted access, either
// a User or a Group.
//
// ACO (Access Control Object): the protected entity, a Resource.
//
// Permission: a single row granting one ARO a permission type on one
// resource. Types form an ordered scale, Read (1) < Update (7) < Owner (15);
// a higher type implies every lower capability. The integer encoding is part
// of the persisted schema and is stable.
//
// Effective access is always resolved at query time against current group
// membership; there is no materialized closure and no cache. A user has
// access to a resource if they hold a direct permission or belong to a
// non-deleted group that holds one. Soft-deleted resources never resolve
// to accessible, regardless of stored rows.
//
// # Key Features
//
//   - Graduated Read / Update / Owner permissions for users and groups
//   - Transitive access resolution through group membership
//   - Delete-time integrity rules: a user cannot be removed while they are
//     the sole owner of a shared resource, the sole manager of a non-empty
//     group, or the sole manager of a group that solely owns shared resources
//   - Transactional cascading soft-delete across resources, groups,
//     memberships, permissions, secrets, favorites and tags
//   - Share candidate search over users and groups lacking a permission
//   - Audit logging of every permission change and deletion
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Create the service
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := aclkit.NewService(db)
//
//	// 2. Run migrations
//	ms := aclkit.NewMigrationService(service)
//	db.Migrate(ctx, ms.Migrations())
//
//	// 3. Grant access
//	service.Grant(ctx, aclkit.AroUser, userID, resourceID, aclkit.PermissionOwner)
//	service.Grant(ctx, aclkit.AroGroup, groupID, resourceID, aclkit.PermissionRead)
//
//	// 4. Check access
//	ok, err := service.HasAccess(ctx, userID, resourceID)
//
//	// 5. Remove a user; the integrity rules veto unsafe deletions and the
//	// cascade runs in a single transaction
//	err = service.SoftDeleteUser(ctx, userID)
//	var verr *aclkit.ValidationError
//	if errors.As(err, &verr) {
//	    // verr.Tags lists every failed rule, e.g. soleOwnerOfSharedResource
//	}
//
// # Deletion Rules
//
// SoftDeleteUser evaluates an ordered list of delete rules inside the same
// transaction as the cascade and aggregates every failure instead of
// stopping at the first. A failed validation performs no mutation at all.
// Callers are expected to transfer ownership or group management and retry.
//
// # Audit Log
//
// Permission grants and revocations, and user, group and resource
// soft-deletions, are recorded with the acting user and request metadata
// taken from the context (see WithActorID, WithRequestID).
package aclkit
