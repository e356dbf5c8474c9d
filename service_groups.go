package aclkit

import (
	"context"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// GROUP MANAGEMENT
// ============================================================================

// GroupMember describes one membership when creating a group.
type GroupMember struct {
	UserID  string
	IsAdmin bool
}

// CreateGroup creates a group with its initial members. At least one
// member must be a manager; a group is never created without someone able
// to administer it. Every member must be a live user. The group name must
// be unique among non-deleted groups.
func (s *Service) CreateGroup(ctx context.Context, name string, members []GroupMember) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(ErrValidation, "the group name should not be empty")
	}
	hasManager := false
	for _, m := range members {
		if err := validateID(m.UserID, "user id"); err != nil {
			return nil, err
		}
		if m.IsAdmin {
			hasManager = true
		}
	}
	if !hasManager {
		return nil, NewError(ErrLastManager, "the group should have at least one manager")
	}

	group := &Group{ID: NewID(), Name: name}
	err := s.Transaction(ctx, func(tx *Service) error {
		taken, err := dbkit.Exists[Group](ctx, tx.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("g.name = ?", name).Where("g.deleted = ?", false)
		})
		if err := dbkit.WithErr1(err, "CreateGroup").Err(); err != nil {
			return err
		}
		if taken {
			return NewError(ErrAlreadyExists, "a group with this name already exists")
		}

		for _, m := range members {
			if err := tx.aroExists(ctx, AroUser, m.UserID); err != nil {
				return err
			}
		}

		_, err = tx.db.NewInsert().Model(group).Exec(ctx)
		if err := dbkit.WithErr1(err, "CreateGroup").Err(); err != nil {
			return err
		}

		rows := make([]*GroupUser, 0, len(members))
		for _, m := range members {
			rows = append(rows, &GroupUser{
				ID:      NewID(),
				GroupID: group.ID,
				UserID:  m.UserID,
				IsAdmin: m.IsAdmin,
			})
		}
		_, err = dbkit.BatchInsert(ctx, tx.db, rows, dbkit.BatchSize)
		return dbkit.WithErr1(err, "CreateGroup").Err()
	})
	if err != nil {
		return nil, err
	}

	s.log.V(1).Info("group created", "group_id", group.ID, "name", name)
	return group, nil
}

// AddGroupMember adds a user to a group. Returns ErrAlreadyExists when the
// user is already a member.
func (s *Service) AddGroupMember(ctx context.Context, groupID, userID string, isAdmin bool) error {
	if err := validateID(groupID, "group id"); err != nil {
		return err
	}
	if err := validateID(userID, "user id"); err != nil {
		return err
	}
	if err := s.aroExists(ctx, AroGroup, groupID); err != nil {
		return err
	}
	if err := s.aroExists(ctx, AroUser, userID); err != nil {
		return err
	}

	membership := &GroupUser{
		ID:      NewID(),
		GroupID: groupID,
		UserID:  userID,
		IsAdmin: isAdmin,
	}
	result, err := s.db.NewInsert().
		Model(membership).
		On("CONFLICT (group_id, user_id) DO NOTHING").
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "AddGroupMember").Err(); err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return NewError(ErrAlreadyExists, "the user is already a member of the group").
			WithGroup(groupID).
			WithUser(userID)
	}
	return nil
}

// RemoveGroupMember removes a user from a group.
//
// The only manager of a group that still has other members cannot be
// removed; promote another manager first (ErrLastManager). When the last
// member leaves, the group is deleted through the same path as
// DeleteGroup, including its sole-owner check.
func (s *Service) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	if err := validateID(groupID, "group id"); err != nil {
		return err
	}
	if err := validateID(userID, "user id"); err != nil {
		return err
	}

	return s.Transaction(ctx, func(tx *Service) error {
		members, err := tx.lockGroupMembers(ctx, groupID)
		if err != nil {
			return err
		}

		var target *GroupUser
		othersRemain := false
		otherManager := false
		for i := range members {
			if members[i].UserID == userID {
				target = &members[i]
				continue
			}
			othersRemain = true
			if members[i].IsAdmin {
				otherManager = true
			}
		}
		if target == nil {
			return NewError(ErrNotFound, "the user is not a member of the group").
				WithGroup(groupID).
				WithUser(userID)
		}
		if target.IsAdmin && othersRemain && !otherManager {
			return NewError(ErrLastManager, "the group would be left without a manager").
				WithGroup(groupID).
				WithUser(userID)
		}

		_, err = tx.db.NewDelete().
			Model((*GroupUser)(nil)).
			Where("id = ?", target.ID).
			Exec(ctx)
		if err := dbkit.WithErr1(err, "RemoveGroupMember").Err(); err != nil {
			return err
		}

		if !othersRemain {
			return tx.deleteGroupLocked(ctx, groupID)
		}
		return nil
	})
}

// PromoteManager sets or clears the manager flag on a membership. Demoting
// the only manager of a group with other members is refused.
func (s *Service) PromoteManager(ctx context.Context, groupID, userID string, isAdmin bool) error {
	if err := validateID(groupID, "group id"); err != nil {
		return err
	}
	if err := validateID(userID, "user id"); err != nil {
		return err
	}

	return s.Transaction(ctx, func(tx *Service) error {
		members, err := tx.lockGroupMembers(ctx, groupID)
		if err != nil {
			return err
		}

		var target *GroupUser
		otherManager := false
		for i := range members {
			if members[i].UserID == userID {
				target = &members[i]
				continue
			}
			if members[i].IsAdmin {
				otherManager = true
			}
		}
		if target == nil {
			return NewError(ErrNotFound, "the user is not a member of the group").
				WithGroup(groupID).
				WithUser(userID)
		}
		if !isAdmin && target.IsAdmin && !otherManager {
			return NewError(ErrLastManager, "the group would be left without a manager").
				WithGroup(groupID).
				WithUser(userID)
		}

		_, err = tx.db.NewUpdate().
			Model((*GroupUser)(nil)).
			Set("is_admin = ?", isAdmin).
			Where("id = ?", target.ID).
			Exec(ctx)
		return dbkit.WithErr1(err, "PromoteManager").Err()
	})
}

// DeleteGroup soft-deletes a group. Resources only reachable through the
// group are soft-deleted with it; a resource that other AROs can still
// reach but whose only Owner is this group blocks the deletion with
// ErrLastOwner. Memberships and grants are removed in the same
// transaction.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) error {
	if err := validateID(groupID, "group id"); err != nil {
		return err
	}
	if err := s.aroExists(ctx, AroGroup, groupID); err != nil {
		return err
	}

	err := s.Transaction(ctx, func(tx *Service) error {
		if _, err := tx.lockGroupMembers(ctx, groupID); err != nil {
			return err
		}
		return tx.deleteGroupLocked(ctx, groupID)
	})
	if err != nil {
		return err
	}

	s.log.V(1).Info("group deleted", "group_id", groupID)
	return nil
}

// deleteGroupLocked performs the group deletion cascade. Callers hold the
// transaction and the membership locks.
func (s *Service) deleteGroupLocked(ctx context.Context, groupID string) error {
	stranded, err := existsRaw(ctx, s.db, `
		SELECT 1 FROM permissions AS p
		JOIN resources AS r ON r.id = p.aco_foreign_key AND r.deleted = FALSE
		WHERE p.aro_foreign_key = ? AND p.type = ?
		AND EXISTS (
			SELECT 1 FROM permissions AS p2
			WHERE p2.aco_foreign_key = p.aco_foreign_key
			AND p2.aro_foreign_key <> ?)
		AND NOT EXISTS (
			SELECT 1 FROM permissions AS p3
			WHERE p3.aco_foreign_key = p.aco_foreign_key
			AND p3.type = ? AND p3.aro_foreign_key <> ?)
		LIMIT 1`,
		groupID, int(PermissionOwner), groupID, int(PermissionOwner), groupID)
	if err != nil {
		return err
	}
	if stranded {
		return NewError(ErrLastOwner, "a shared resource would be left without an owner").
			WithGroup(groupID)
	}

	var exclusive []string
	err = s.db.NewRaw(`
		SELECT DISTINCT p.aco_foreign_key FROM permissions AS p
		JOIN resources AS r ON r.id = p.aco_foreign_key AND r.deleted = FALSE
		WHERE p.aro_foreign_key = ?
		AND NOT EXISTS (
			SELECT 1 FROM permissions AS p2
			WHERE p2.aco_foreign_key = p.aco_foreign_key
			AND p2.aro_foreign_key <> ?)`,
		groupID, groupID).Scan(ctx, &exclusive)
	if err := dbkit.WithErr1(err, "DeleteGroup").Err(); err != nil {
		return err
	}
	if err := s.softDeleteResources(ctx, exclusive); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.NewUpdate().
		Model((*Group)(nil)).
		Set("deleted = ?", true).
		Set("updated_at = ?", now).
		Where("id = ?", groupID).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "DeleteGroup").Err(); err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Table("permissions").
		Where("aro_foreign_key = ?", groupID).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "DeleteGroup").Err(); err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Table("groups_users").
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "DeleteGroup").Err(); err != nil {
		return err
	}

	_ = s.logAudit(ctx, &AuditEntry{
		Action:        AuditActionGroupDeleted,
		Aro:           AroGroup,
		AroForeignKey: groupID,
	}) // Log error but don't fail the deletion
	return nil
}

// lockGroupMembers loads and row-locks the memberships of a live group.
func (s *Service) lockGroupMembers(ctx context.Context, groupID string) ([]GroupUser, error) {
	if err := s.aroExists(ctx, AroGroup, groupID); err != nil {
		return nil, err
	}

	var members []GroupUser
	err := s.db.NewSelect().
		Model(&members).
		Where("gu.group_id = ?", groupID).
		For("UPDATE").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "LockGroupMembers").Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// ListGroupMembers returns the memberships of a live group, managers first.
func (s *Service) ListGroupMembers(ctx context.Context, groupID string) ([]GroupUser, error) {
	if err := validateID(groupID, "group id"); err != nil {
		return nil, err
	}
	if err := s.aroExists(ctx, AroGroup, groupID); err != nil {
		return nil, err
	}

	var members []GroupUser
	err := s.db.NewSelect().
		Model(&members).
		Where("gu.group_id = ?", groupID).
		Order("gu.is_admin DESC", "gu.created_at ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "ListGroupMembers").Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// FindGroupsForUser returns the non-deleted groups the user belongs to.
func (s *Service) FindGroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}

	var groups []Group
	err := s.db.NewSelect().
		Model(&groups).
		Join("JOIN groups_users AS gu ON gu.group_id = g.id").
		Where("gu.user_id = ?", userID).
		Where("g.deleted = ?", false).
		Order("g.name ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "FindGroupsForUser").Err(); err != nil {
		return nil, err
	}
	return groups, nil
}
