package aclkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// SECRETS
// ============================================================================

// SaveSecret stores or replaces the user's encrypted payload for a
// resource. A secret may only exist while the user has access to the
// resource; callers without access get ErrNotFound, the same answer a
// missing resource gives. One secret per (resource, user) pair.
func (s *Service) SaveSecret(ctx context.Context, userID, resourceID, data string) (*Secret, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}
	if data == "" {
		return nil, NewError(ErrValidation, "the secret data should not be empty").
			WithUser(userID).
			WithResource(resourceID)
	}

	if _, err := s.findLiveUser(ctx, userID); err != nil {
		return nil, err
	}
	ok, err := s.HasAccess(ctx, userID, resourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(ErrNotFound, "the resource does not exist").
			WithUser(userID).
			WithResource(resourceID)
	}

	secret := &Secret{
		ID:         NewID(),
		ResourceID: resourceID,
		UserID:     userID,
		Data:       data,
	}
	_, err = s.db.NewInsert().
		Model(secret).
		On("CONFLICT (resource_id, user_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = ?", time.Now().UTC()).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "SaveSecret").Err(); err != nil {
		return nil, err
	}
	return secret, nil
}

// GetSecret returns the user's secret for a resource. Missing secrets,
// missing resources and resources the user cannot reach all return
// ErrNotFound.
func (s *Service) GetSecret(ctx context.Context, userID, resourceID string) (*Secret, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}

	ok, err := s.HasAccess(ctx, userID, resourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(ErrNotFound, "the secret does not exist").
			WithUser(userID).
			WithResource(resourceID)
	}

	var secret Secret
	err = s.db.NewSelect().
		Model(&secret).
		Where("s.user_id = ?", userID).
		Where("s.resource_id = ?", resourceID).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(dbkit.WithErr1(err, "GetSecret").Err()) {
			return nil, NewError(ErrNotFound, "the secret does not exist").
				WithUser(userID).
				WithResource(resourceID)
		}
		return nil, dbkit.WithErr1(err, "GetSecret").Err()
	}
	return &secret, nil
}

// DeleteSecret removes the user's secret for a resource. Returns
// ErrNotFound when no secret exists.
func (s *Service) DeleteSecret(ctx context.Context, userID, resourceID string) error {
	if err := validateID(userID, "user id"); err != nil {
		return err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return err
	}

	result, err := s.db.NewDelete().
		Model((*Secret)(nil)).
		Where("user_id = ?", userID).
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "DeleteSecret").Err(); err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return NewError(ErrNotFound, "the secret does not exist").
			WithUser(userID).
			WithResource(resourceID)
	}
	return nil
}

// pruneSecretsWithoutAccess removes secrets whose owner no longer has any
// access to the resource. Called after revocations to keep the invariant
// that a secret implies access.
func (s *Service) pruneSecretsWithoutAccess(ctx context.Context, resourceID string) error {
	_, err := s.db.NewDelete().
		Model((*Secret)(nil)).
		Where("resource_id = ?", resourceID).
		Where(`NOT EXISTS (
			SELECT 1 FROM permissions AS p
			WHERE p.aco_foreign_key = secrets.resource_id
			AND (p.aro_foreign_key = secrets.user_id
				OR p.aro_foreign_key IN (
					SELECT gu.group_id FROM groups_users AS gu
					JOIN groups AS g ON g.id = gu.group_id
					WHERE gu.user_id = secrets.user_id AND g.deleted = FALSE)))`).
		Exec(ctx)
	return dbkit.WithErr1(err, "PruneSecretsWithoutAccess").Err()
}

// countSecrets is used by tests to assert cascade cleanup.
func (s *Service) countSecrets(ctx context.Context, userID string) (int, error) {
	n, err := dbkit.Count[Secret](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("s.user_id = ?", userID)
	})
	return n, dbkit.WithErr1(err, "CountSecrets").Err()
}
