package aclkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// DELETE RULES
// ============================================================================

// A DeleteRule inspects the state a user deletion would leave behind and
// vetoes the deletion when it would strand a shared resource or group
// without an owner or manager. Rules run inside the deletion transaction
// and see the row-locked state.
type DeleteRule struct {
	// Tag identifies the rule in aggregated validation errors.
	Tag RuleTag

	// Evaluate returns false when the rule vetoes deleting the user.
	// Rules never mutate; they only read.
	Evaluate func(ctx context.Context, s *Service, userID string) (bool, error)
}

// defaultDeleteRules returns the rule set every new Service starts with.
// All rules are evaluated even after one fails, so the caller receives
// every violated tag at once.
func defaultDeleteRules() []DeleteRule {
	return []DeleteRule{
		{Tag: RuleSoleOwnerOfSharedResource, Evaluate: soleOwnerOfSharedResource},
		{Tag: RuleSoleManagerOfNonEmptyGroup, Evaluate: soleManagerOfNonEmptyGroup},
		{Tag: RuleSoleManagerOfGroupOwningSharedResource, Evaluate: soleManagerOfGroupOwningSharedResource},
	}
}

// CheckDeleteRules evaluates every configured rule against the user and
// returns a *ValidationError carrying all violated tags, or nil when the
// user may be deleted. The caller decides transactional context; the
// deletion cascade runs this against row-locked state.
func (s *Service) CheckDeleteRules(ctx context.Context, userID string) (*ValidationError, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}

	var tags []RuleTag
	for _, rule := range s.rules {
		ok, err := rule.Evaluate(ctx, s, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			tags = append(tags, rule.Tag)
		}
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return &ValidationError{UserID: userID, Tags: tags}, nil
}

// soleOwnerOfSharedResource fails when some non-deleted resource that
// other AROs can still reach would lose its last Owner with the user.
// Grants held by groups the user is the only member of count as the
// user's own, since those groups die with the user. Resources nobody else
// can reach at all are not vetoed here; the cascade soft-deletes them.
func soleOwnerOfSharedResource(ctx context.Context, s *Service, userID string) (bool, error) {
	dying, err := s.dyingAroIDs(ctx, userID)
	if err != nil {
		return false, err
	}

	stranded, err := existsRaw(ctx, s.db, `
		SELECT 1 FROM permissions AS p
		JOIN resources AS r ON r.id = p.aco_foreign_key AND r.deleted = FALSE
		WHERE p.aro_foreign_key IN (?) AND p.type = ?
		AND EXISTS (
			SELECT 1 FROM permissions AS p2
			WHERE p2.aco_foreign_key = p.aco_foreign_key
			AND p2.aro_foreign_key NOT IN (?))
		AND NOT EXISTS (
			SELECT 1 FROM permissions AS p3
			WHERE p3.aco_foreign_key = p.aco_foreign_key
			AND p3.type = ?
			AND p3.aro_foreign_key NOT IN (?))
		LIMIT 1`,
		bun.In(dying), int(PermissionOwner), bun.In(dying), int(PermissionOwner), bun.In(dying))
	if err != nil {
		return false, err
	}
	return !stranded, nil
}

// soleManagerOfNonEmptyGroup fails when the user is the only manager of a
// non-deleted group that still has other members. Groups the user is the
// sole member of are exempt; they are soft-deleted by the cascade.
func soleManagerOfNonEmptyGroup(ctx context.Context, s *Service, userID string) (bool, error) {
	stranded, err := existsRaw(ctx, s.db, `
		SELECT 1 FROM groups_users AS gu
		JOIN groups AS g ON g.id = gu.group_id AND g.deleted = FALSE
		WHERE gu.user_id = ? AND gu.is_admin = TRUE
		AND (SELECT COUNT(*) FROM groups_users AS m WHERE m.group_id = gu.group_id) >= 2
		AND NOT EXISTS (
			SELECT 1 FROM groups_users AS a
			WHERE a.group_id = gu.group_id AND a.user_id <> ? AND a.is_admin = TRUE)
		LIMIT 1`,
		userID, userID)
	if err != nil {
		return false, err
	}
	return !stranded, nil
}

// soleManagerOfGroupOwningSharedResource fails when the user is the only
// manager of a non-deleted, non-empty group that is itself the last Owner
// of some reachable resource. Overlaps with the sole-manager rule on
// purpose; both tags are reported together.
func soleManagerOfGroupOwningSharedResource(ctx context.Context, s *Service, userID string) (bool, error) {
	stranded, err := existsRaw(ctx, s.db, `
		SELECT 1 FROM groups_users AS gu
		JOIN groups AS g ON g.id = gu.group_id AND g.deleted = FALSE
		WHERE gu.user_id = ? AND gu.is_admin = TRUE
		AND (SELECT COUNT(*) FROM groups_users AS m WHERE m.group_id = gu.group_id) >= 2
		AND NOT EXISTS (
			SELECT 1 FROM groups_users AS a
			WHERE a.group_id = gu.group_id AND a.user_id <> ? AND a.is_admin = TRUE)
		AND EXISTS (
			SELECT 1 FROM permissions AS p
			JOIN resources AS r ON r.id = p.aco_foreign_key AND r.deleted = FALSE
			WHERE p.aro_foreign_key = gu.group_id AND p.type = ?
			AND NOT EXISTS (
				SELECT 1 FROM permissions AS p2
				WHERE p2.aco_foreign_key = p.aco_foreign_key
				AND p2.type = ?
				AND p2.aro_foreign_key <> gu.group_id))
		LIMIT 1`,
		userID, userID, int(PermissionOwner), int(PermissionOwner))
	if err != nil {
		return false, err
	}
	return !stranded, nil
}

// existsRaw runs a raw existence probe and reports whether any row came
// back.
func existsRaw(ctx context.Context, db dbkit.IDB, query string, args ...interface{}) (bool, error) {
	var found []int
	err := db.NewRaw(query, args...).Scan(ctx, &found)
	if err := dbkit.WithErr1(err, "ExistsRaw").Err(); err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
