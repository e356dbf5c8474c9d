package aclkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// ACCESS RESOLUTION
// ============================================================================

// Access is always computed at query time by joining permission rows with
// current group membership. Membership changes frequently, so nothing here
// is cached; a full closure table is never materialized.

// accessPredicate matches permission rows granting the aliased user (u)
// access to a resource, either directly or through a non-deleted group.
const accessPredicate = `EXISTS (
	SELECT 1 FROM permissions AS p
	WHERE p.aco_foreign_key = ?
	AND (p.aro_foreign_key = u.id
		OR p.aro_foreign_key IN (
			SELECT gu.group_id FROM groups_users AS gu
			JOIN groups AS g ON g.id = gu.group_id
			WHERE gu.user_id = u.id AND g.deleted = FALSE))
)`

// groupIDsSubquery selects the non-deleted groups a user belongs to.
func (s *Service) groupIDsSubquery(userID string) *bun.SelectQuery {
	return s.db.NewSelect().
		Model((*GroupUser)(nil)).
		Column("gu.group_id").
		Join("JOIN groups AS g ON g.id = gu.group_id").
		Where("gu.user_id = ?", userID).
		Where("g.deleted = ?", false)
}

// resourceVisible is the single visibility predicate for resources: a
// resource exists for every consumer iff its row is present and not a
// tombstone.
func (s *Service) resourceVisible(ctx context.Context, resourceID string) (bool, error) {
	visible, err := dbkit.Exists[Resource](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("r.id = ?", resourceID).Where("r.deleted = ?", false)
	})
	return visible, dbkit.WithErr1(err, "ResourceVisible").Err()
}

// HasAccess reports whether the subject (a user, or a group) holds any
// permission on the resource, directly or through membership in a
// non-deleted group. Soft-deleted resources never resolve to accessible,
// regardless of stored rows.
//
// Example:
//
//	ok, err := service.HasAccess(ctx, userID, resourceID)
func (s *Service) HasAccess(ctx context.Context, subjectID, resourceID string) (bool, error) {
	if err := validateID(subjectID, "subject id"); err != nil {
		return false, err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return false, err
	}

	visible, err := s.resourceVisible(ctx, resourceID)
	if err != nil || !visible {
		return false, err
	}

	ok, err := dbkit.Exists[Permission](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("p.aco_foreign_key = ?", resourceID).
			Where("p.aro_foreign_key = ? OR p.aro_foreign_key IN (?)",
				subjectID, s.groupIDsSubquery(subjectID))
	})
	return ok, dbkit.WithErr1(err, "HasAccess").Err()
}

// HighestPermissionType returns the strongest permission type the user
// holds on the resource, direct or inherited, or zero when the user has no
// access or the resource is a tombstone.
func (s *Service) HighestPermissionType(ctx context.Context, userID, resourceID string) (PermissionType, error) {
	if err := validateID(userID, "user id"); err != nil {
		return 0, err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return 0, err
	}

	visible, err := s.resourceVisible(ctx, resourceID)
	if err != nil || !visible {
		return 0, err
	}

	var highest int
	err = s.db.NewSelect().
		Model((*Permission)(nil)).
		ColumnExpr("COALESCE(MAX(p.type), 0)").
		Where("p.aco_foreign_key = ?", resourceID).
		Where("p.aro_foreign_key = ? OR p.aro_foreign_key IN (?)",
			userID, s.groupIDsSubquery(userID)).
		Scan(ctx, &highest)
	if err := dbkit.WithErr1(err, "HighestPermissionType").Err(); err != nil {
		return 0, err
	}

	return PermissionType(highest), nil
}

// FindUsersWithAccess returns every non-deleted user with access to the
// resource. A user reachable both directly and through a group appears
// once. Tombstoned resources yield an empty set.
func (s *Service) FindUsersWithAccess(ctx context.Context, resourceID string) ([]User, error) {
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}

	visible, err := s.resourceVisible(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	var users []User
	err = s.db.NewSelect().
		Model(&users).
		Where("u.deleted = ?", false).
		Where(accessPredicate, resourceID).
		Order("u.username ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "FindUsersWithAccess").Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// FindUsersLackingPermission returns the active, non-deleted, non-guest
// users without any access to the resource, direct or inherited. An
// optional case-insensitive search narrows by username, first or last name.
// Used to build sharing candidate lists.
func (s *Service) FindUsersLackingPermission(ctx context.Context, resourceID, search string) ([]User, error) {
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}

	var users []User
	q := s.db.NewSelect().
		Model(&users).
		Where("u.deleted = ?", false).
		Where("u.active = ?", true).
		Where("u.role <> ?", RoleGuest).
		Where("NOT "+accessPredicate, resourceID).
		Order("u.username ASC")
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("(u.username ILIKE ? OR u.first_name ILIKE ? OR u.last_name ILIKE ?)",
			pattern, pattern, pattern)
	}

	err := q.Scan(ctx)
	if err := dbkit.WithErr1(err, "FindUsersLackingPermission").Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// FindGroupsLackingPermission returns the non-deleted groups without a
// permission row on the resource, optionally narrowed by a
// case-insensitive name search.
func (s *Service) FindGroupsLackingPermission(ctx context.Context, resourceID, search string) ([]Group, error) {
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}

	var groups []Group
	q := s.db.NewSelect().
		Model(&groups).
		Where("g.deleted = ?", false).
		Where(`NOT EXISTS (
			SELECT 1 FROM permissions AS p
			WHERE p.aco_foreign_key = ? AND p.aro_foreign_key = g.id)`, resourceID).
		Order("g.name ASC")
	if search != "" {
		q = q.Where("g.name ILIKE ?", "%"+search+"%")
	}

	err := q.Scan(ctx)
	if err := dbkit.WithErr1(err, "FindGroupsLackingPermission").Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// soleMemberGroupIDs returns the non-deleted groups in which the user is
// the only member. These groups die with the user: their grants count as
// the user's own when computing exclusive ownership.
func (s *Service) soleMemberGroupIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.NewRaw(`
		SELECT gu.group_id FROM groups_users AS gu
		JOIN groups AS g ON g.id = gu.group_id
		WHERE gu.user_id = ? AND g.deleted = FALSE
		AND (SELECT COUNT(*) FROM groups_users AS m WHERE m.group_id = gu.group_id) = 1`,
		userID).Scan(ctx, &ids)
	if err := dbkit.WithErr1(err, "SoleMemberGroupIDs").Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// dyingAroIDs returns the ARO identifiers whose grants disappear when the
// user is removed: the user plus every group the user is the only member of.
func (s *Service) dyingAroIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.soleMemberGroupIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(ids, userID), nil
}

// FindResourcesExclusivelyOwnedBy returns the non-deleted resources whose
// entire ARO set collapses with the user: every permission row belongs to
// the user or to a group the user is the only member of. Removing the user
// would leave zero remaining AROs, so the cascade soft-deletes them.
// Distinct from "sole owner", which is Owner-level specifically.
func (s *Service) FindResourcesExclusivelyOwnedBy(ctx context.Context, userID string) ([]string, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}

	dying, err := s.dyingAroIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []string
	err = s.db.NewRaw(`
		SELECT DISTINCT p.aco_foreign_key FROM permissions AS p
		JOIN resources AS r ON r.id = p.aco_foreign_key AND r.deleted = FALSE
		WHERE p.aro_foreign_key IN (?)
		AND NOT EXISTS (
			SELECT 1 FROM permissions AS p2
			WHERE p2.aco_foreign_key = p.aco_foreign_key
			AND p2.aro_foreign_key NOT IN (?))`,
		bun.In(dying), bun.In(dying)).Scan(ctx, &ids)
	if err := dbkit.WithErr1(err, "FindResourcesExclusivelyOwnedBy").Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
