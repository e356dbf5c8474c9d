package aclkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// USER DELETION CASCADE
// ============================================================================

// SoftDeleteUser tombstones the user and cascades over everything the user
// leaves behind, atomically:
//
//   - resources only the user (or groups dying with the user) could reach
//     are soft-deleted, along with their permissions, secrets, favorites
//     and tag links
//   - groups the user is the only member of are soft-deleted and their
//     grants removed
//   - the user's memberships, permissions, secrets, favorites and tag
//     links are removed, and tags no longer attached anywhere are purged
//
// Before anything is removed, every delete rule is evaluated against
// row-locked state. Any violation rolls the whole transaction back and a
// *ValidationError carrying all violated rule tags is returned.
//
// Returns ErrNotFound when the user does not exist or is already deleted.
func (s *Service) SoftDeleteUser(ctx context.Context, userID string) error {
	if err := validateID(userID, "user id"); err != nil {
		return err
	}

	user, err := s.findLiveUser(ctx, userID)
	if err != nil {
		return err
	}

	err = s.Transaction(ctx, func(tx *Service) error {
		dying, err := tx.dyingAroIDs(ctx, userID)
		if err != nil {
			return err
		}

		// Lock every permission row of every resource the dying AROs can
		// reach. Rules and the cascade must agree on one snapshot;
		// concurrent grants or revokes on these resources wait.
		var locked []Permission
		err = tx.db.NewSelect().
			Model(&locked).
			Where(`p.aco_foreign_key IN (
				SELECT l.aco_foreign_key FROM permissions AS l
				WHERE l.aro_foreign_key IN (?))`, bun.In(dying)).
			For("UPDATE").
			Scan(ctx)
		if err := dbkit.WithErr1(err, "LockPermissions").Err(); err != nil {
			return err
		}

		// Same for membership: lock every row of every group the user
		// belongs to, so the sole-manager rules and a concurrent delete of
		// another admin cannot both read the pre-delete state.
		var lockedMembers []GroupUser
		err = tx.db.NewSelect().
			Model(&lockedMembers).
			Where(`gu.group_id IN (
				SELECT m.group_id FROM groups_users AS m
				WHERE m.user_id = ?)`, userID).
			For("UPDATE").
			Scan(ctx)
		if err := dbkit.WithErr1(err, "LockMemberships").Err(); err != nil {
			return err
		}

		vErr, err := tx.CheckDeleteRules(ctx, userID)
		if err != nil {
			return err
		}
		if vErr != nil {
			return vErr
		}

		exclusive, err := tx.FindResourcesExclusivelyOwnedBy(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.softDeleteResources(ctx, exclusive); err != nil {
			return err
		}

		soleGroups, err := tx.soleMemberGroupIDs(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.softDeleteGroups(ctx, soleGroups); err != nil {
			return err
		}

		if err := tx.purgeUserRows(ctx, userID); err != nil {
			return err
		}

		now := time.Now().UTC()
		res, err := tx.db.NewUpdate().
			Model((*User)(nil)).
			Set("deleted = ?", true).
			Set("active = ?", false).
			Set("updated_at = ?", now).
			Where("id = ?", userID).
			Where("deleted = ?", false).
			Exec(ctx)
		if err := dbkit.WithErr1(err, "TombstoneUser").Err(); err != nil {
			return NewError(ErrInternal, "failed to delete the user").WithUser(userID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return NewError(ErrInternal, "failed to delete the user").WithUser(userID)
		}

		_ = tx.logAudit(ctx, &AuditEntry{
			Action:        AuditActionUserDeleted,
			Aro:           AroUser,
			AroForeignKey: userID,
		}) // Log error but don't fail the deletion
		return nil
	})
	if err != nil {
		return err
	}

	s.log.V(1).Info("user deleted", "user_id", userID)
	s.notify(EventUserDeleted, map[string]any{
		"user_id":  userID,
		"username": user.Username,
	})
	return nil
}

// findLiveUser loads a non-deleted user or returns ErrNotFound.
func (s *Service) findLiveUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.db.NewSelect().
		Model(&user).
		Where("u.id = ?", userID).
		Where("u.deleted = ?", false).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(dbkit.WithErr1(err, "FindLiveUser").Err()) {
			return nil, NewError(ErrNotFound, "the user does not exist").WithUser(userID)
		}
		return nil, dbkit.WithErr1(err, "FindLiveUser").Err()
	}
	return &user, nil
}

// softDeleteResources tombstones the resources and removes every row that
// hangs off them. Tag links go too; orphaned tags are purged at the end
// of the cascade.
func (s *Service) softDeleteResources(ctx context.Context, resourceIDs []string) error {
	if len(resourceIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*Resource)(nil)).
		Set("deleted = ?", true).
		Set("updated_at = ?", now).
		Where("id IN (?)", bun.In(resourceIDs)).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "SoftDeleteResources").Err(); err != nil {
		return err
	}

	for _, del := range []struct {
		table  string
		column string
	}{
		{"permissions", "aco_foreign_key"},
		{"secrets", "resource_id"},
		{"favorites", "resource_id"},
		{"resources_tags", "resource_id"},
	} {
		_, err := s.db.NewDelete().
			Table(del.table).
			Where(del.column+" IN (?)", bun.In(resourceIDs)).
			Exec(ctx)
		if err := dbkit.WithErr1(err, "SoftDeleteResources").Err(); err != nil {
			return err
		}
	}
	return nil
}

// softDeleteGroups tombstones the groups and removes their memberships and
// grants.
func (s *Service) softDeleteGroups(ctx context.Context, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*Group)(nil)).
		Set("deleted = ?", true).
		Set("updated_at = ?", now).
		Where("id IN (?)", bun.In(groupIDs)).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "SoftDeleteGroups").Err(); err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Table("permissions").
		Where("aro_foreign_key IN (?)", bun.In(groupIDs)).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "SoftDeleteGroups").Err(); err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Table("groups_users").
		Where("group_id IN (?)", bun.In(groupIDs)).
		Exec(ctx)
	return dbkit.WithErr1(err, "SoftDeleteGroups").Err()
}

// purgeUserRows removes everything attached directly to the user:
// memberships, grants, secrets, favorites and tag links, then garbage
// collects tags no longer referenced by any resource.
func (s *Service) purgeUserRows(ctx context.Context, userID string) error {
	for _, del := range []struct {
		table  string
		column string
	}{
		{"groups_users", "user_id"},
		{"permissions", "aro_foreign_key"},
		{"secrets", "user_id"},
		{"favorites", "user_id"},
		{"resources_tags", "user_id"},
	} {
		_, err := s.db.NewDelete().
			Table(del.table).
			Where(del.column+" = ?", userID).
			Exec(ctx)
		if err := dbkit.WithErr1(err, "PurgeUserRows").Err(); err != nil {
			return err
		}
	}
	return s.DeleteUnusedTags(ctx)
}
