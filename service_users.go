package aclkit

import (
	"context"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// USER LIFECYCLE
// ============================================================================

// RegisterUser creates an inactive user account. The account stays
// inactive until ActivateUser runs, and inactive users never appear in
// share candidate lists.
//
// Only an admin actor may assign a role other than RoleUser; requests from
// non-admin or anonymous actors are silently downgraded to RoleUser.
// Usernames are lowercased and must be unique among non-deleted users.
func (s *Service) RegisterUser(ctx context.Context, username, firstName, lastName, role string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, NewError(ErrValidation, "the username should not be empty")
	}
	if role == "" {
		role = RoleUser
	}
	if !IsValidRoleName(role) {
		return nil, NewError(ErrInvalidRole, "the role should be admin, user or guest")
	}
	if role != RoleUser {
		admin, err := s.actorIsAdmin(ctx)
		if err != nil {
			return nil, err
		}
		if !admin {
			role = RoleUser
		}
	}

	user := &User{
		ID:        NewID(),
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
		Active:    false,
	}
	err := s.Transaction(ctx, func(tx *Service) error {
		taken, err := dbkit.Exists[User](ctx, tx.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("u.username = ?", username).Where("u.deleted = ?", false)
		})
		if err := dbkit.WithErr1(err, "RegisterUser").Err(); err != nil {
			return err
		}
		if taken {
			return NewError(ErrAlreadyExists, "a user with this username already exists")
		}

		_, err = tx.db.NewInsert().Model(user).Exec(ctx)
		return dbkit.WithErr1(err, "RegisterUser").Err()
	})
	if err != nil {
		return nil, err
	}

	s.log.V(1).Info("user registered", "user_id", user.ID, "username", username)
	s.notify(EventUserRegistered, map[string]any{
		"user_id":  user.ID,
		"username": username,
	})
	return user, nil
}

// ActivateUser marks a registered user active. Activating an already
// active user is a no-op. Returns ErrNotFound for missing or deleted
// users.
func (s *Service) ActivateUser(ctx context.Context, userID string) error {
	if err := validateID(userID, "user id"); err != nil {
		return err
	}

	user, err := s.findLiveUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Active {
		return nil
	}

	_, err = s.db.NewUpdate().
		Model((*User)(nil)).
		Set("active = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Where("deleted = ?", false).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "ActivateUser").Err(); err != nil {
		return err
	}

	s.notify(EventUserActivated, map[string]any{
		"user_id":  userID,
		"username": user.Username,
	})
	return nil
}

// FindUsers returns the user index matching the filter, ordered by
// username. Deleted users and guests never appear. Inactive users are
// returned only when the filter asks for them and the acting user is an
// admin.
func (s *Service) FindUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	includeInactive := false
	if filter.IncludeInactive {
		admin, err := s.actorIsAdmin(ctx)
		if err != nil {
			return nil, err
		}
		includeInactive = admin
	}

	var users []User
	q := s.db.NewSelect().
		Model(&users).
		Where("u.deleted = ?", false).
		Where("u.role <> ?", RoleGuest).
		Order("u.username ASC")
	if !includeInactive {
		q = q.Where("u.active = ?", true)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("(u.username ILIKE ? OR u.first_name ILIKE ? OR u.last_name ILIKE ?)",
			pattern, pattern, pattern)
	}
	if filter.HasAccessTo != "" {
		if err := validateID(filter.HasAccessTo, "resource id"); err != nil {
			return nil, err
		}
		q = q.Where(accessPredicate, filter.HasAccessTo)
	}
	if filter.LacksPermissionOn != "" {
		if err := validateID(filter.LacksPermissionOn, "resource id"); err != nil {
			return nil, err
		}
		q = q.Where("NOT "+accessPredicate, filter.LacksPermissionOn)
	}
	if filter.MemberOf != "" {
		if err := validateID(filter.MemberOf, "group id"); err != nil {
			return nil, err
		}
		q = q.Where(`EXISTS (
			SELECT 1 FROM groups_users AS gu
			WHERE gu.group_id = ? AND gu.user_id = u.id)`, filter.MemberOf)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	err := q.Scan(ctx)
	if err := dbkit.WithErr1(err, "FindUsers").Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// actorIsAdmin reports whether the acting user from the context is a live
// admin. An empty or unknown actor is never an admin.
func (s *Service) actorIsAdmin(ctx context.Context) (bool, error) {
	actorID := GetActorID(ctx)
	if actorID == "" || !IsID(actorID) {
		return false, nil
	}

	admin, err := dbkit.Exists[User](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("u.id = ?", actorID).
			Where("u.deleted = ?", false).
			Where("u.role = ?", RoleAdmin)
	})
	return admin, dbkit.WithErr1(err, "ActorIsAdmin").Err()
}
