package aclkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// PERMISSION STORE
// ============================================================================

// Grant gives the subject (user or group) the permission type on the
// resource. An existing grant for the same subject is updated in place;
// a resource never carries two rows for one ARO. The subject and the
// resource must both exist and be live. Lowering the only Owner grant of a
// resource is refused with ErrLastOwner, as in Revoke.
//
// Example:
//
//	err := service.Grant(ctx, AroUser, userID, resourceID, PermissionOwner)
func (s *Service) Grant(ctx context.Context, aro, aroForeignKey, resourceID string, permType PermissionType) error {
	if !IsValidAro(aro) {
		return NewError(ErrInvalidAro, "the aro should be User or Group")
	}
	if err := validateID(aroForeignKey, "aro id"); err != nil {
		return err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return err
	}
	if !permType.IsValid() {
		return NewError(ErrInvalidPermissionType, "the permission type should be Read, Update or Owner").
			WithResource(resourceID)
	}

	visible, err := s.resourceVisible(ctx, resourceID)
	if err != nil {
		return err
	}
	if !visible {
		return NewError(ErrNotFound, "the resource does not exist").WithResource(resourceID)
	}
	if err := s.aroExists(ctx, aro, aroForeignKey); err != nil {
		return err
	}

	err = s.Transaction(ctx, func(tx *Service) error {
		perms, err := tx.lockResourcePermissions(ctx, resourceID)
		if err != nil {
			return err
		}

		// A grant that rewrites an existing row can lower an Owner grant.
		// The resource must keep at least one owner through the rewrite.
		if permType < PermissionOwner {
			existing := findPermission(perms, aroForeignKey)
			if existing != nil && existing.Type == PermissionOwner && countOwners(perms) == 1 {
				return NewError(ErrLastOwner, "the resource would be left without an owner").
					WithResource(resourceID)
			}
		}

		perm := &Permission{
			ID:            NewID(),
			Aco:           AcoResource,
			AcoForeignKey: resourceID,
			Aro:           aro,
			AroForeignKey: aroForeignKey,
			Type:          permType,
		}
		_, err = tx.db.NewInsert().
			Model(perm).
			On("CONFLICT (aco_foreign_key, aro_foreign_key) DO UPDATE").
			Set("type = EXCLUDED.type").
			Set("updated_at = ?", time.Now().UTC()).
			Exec(ctx)
		if err := dbkit.WithErr1(err, "Grant").Err(); err != nil {
			return err
		}

		_ = tx.logAudit(ctx, &AuditEntry{
			Action:         AuditActionGranted,
			Aro:            aro,
			AroForeignKey:  aroForeignKey,
			AcoForeignKey:  resourceID,
			PermissionType: permType,
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.log.V(1).Info("permission granted",
		"aro", aro, "aro_id", aroForeignKey, "resource_id", resourceID, "type", permType.String())
	return nil
}

// Revoke removes the subject's grant on the resource. Removing the last
// Owner grant of a live resource is refused with ErrLastOwner; delete or
// reassign the resource instead. Returns ErrNotFound when no grant exists.
func (s *Service) Revoke(ctx context.Context, aroForeignKey, resourceID string) error {
	if err := validateID(aroForeignKey, "aro id"); err != nil {
		return err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return err
	}

	return s.Transaction(ctx, func(tx *Service) error {
		// Lock the whole permission set, not only the revoked row. Two
		// co-owners revoking concurrently must see each other's delete.
		perms, err := tx.lockResourcePermissions(ctx, resourceID)
		if err != nil {
			return err
		}

		perm := findPermission(perms, aroForeignKey)
		if perm == nil {
			return NewError(ErrNotFound, "the permission does not exist").
				WithResource(resourceID)
		}

		if perm.Type == PermissionOwner && countOwners(perms) == 1 {
			return NewError(ErrLastOwner, "the resource would be left without an owner").
				WithResource(resourceID)
		}

		_, err = tx.db.NewDelete().
			Model((*Permission)(nil)).
			Where("id = ?", perm.ID).
			Exec(ctx)
		if err := dbkit.WithErr1(err, "Revoke").Err(); err != nil {
			return err
		}

		// A secret implies access; drop secrets stranded by the revocation.
		if err := tx.pruneSecretsWithoutAccess(ctx, resourceID); err != nil {
			return err
		}

		_ = tx.logAudit(ctx, &AuditEntry{
			Action:         AuditActionRevoked,
			Aro:            perm.Aro,
			AroForeignKey:  aroForeignKey,
			AcoForeignKey:  resourceID,
			PermissionType: perm.Type,
		})
		return nil
	})
}

// ListResourcePermissions returns every permission row on the resource.
// Returns ErrNotFound for missing or soft-deleted resources.
func (s *Service) ListResourcePermissions(ctx context.Context, resourceID string) ([]Permission, error) {
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}

	visible, err := s.resourceVisible(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, NewError(ErrNotFound, "the resource does not exist").WithResource(resourceID)
	}

	var perms []Permission
	err = s.db.NewSelect().
		Model(&perms).
		Where("p.aco_foreign_key = ?", resourceID).
		Order("p.aro ASC", "p.created_at ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "ListResourcePermissions").Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// lockResourcePermissions loads every permission row on the resource under
// FOR UPDATE. Owner-count decisions must hold the whole set; concurrent
// mutations of the same resource's permissions serialize here.
func (s *Service) lockResourcePermissions(ctx context.Context, resourceID string) ([]Permission, error) {
	var perms []Permission
	err := s.db.NewSelect().
		Model(&perms).
		Where("p.aco_foreign_key = ?", resourceID).
		For("UPDATE").
		Scan(ctx)
	return perms, dbkit.WithErr1(err, "LockResourcePermissions").Err()
}

// findPermission returns the row held by the subject, or nil.
func findPermission(perms []Permission, aroForeignKey string) *Permission {
	for i := range perms {
		if perms[i].AroForeignKey == aroForeignKey {
			return &perms[i]
		}
	}
	return nil
}

// countOwners counts Owner rows in the set.
func countOwners(perms []Permission) int {
	n := 0
	for _, p := range perms {
		if p.Type == PermissionOwner {
			n++
		}
	}
	return n
}

// aroExists checks that the subject row exists and is live for its kind.
func (s *Service) aroExists(ctx context.Context, aro, aroForeignKey string) error {
	var (
		found bool
		err   error
	)
	switch aro {
	case AroUser:
		found, err = dbkit.Exists[User](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("u.id = ?", aroForeignKey).Where("u.deleted = ?", false)
		})
	case AroGroup:
		found, err = dbkit.Exists[Group](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("g.id = ?", aroForeignKey).Where("g.deleted = ?", false)
		})
	}
	if err := dbkit.WithErr1(err, "AroExists").Err(); err != nil {
		return err
	}
	if !found {
		return NewError(ErrNotFound, "the "+aro+" does not exist")
	}
	return nil
}
