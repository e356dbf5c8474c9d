package aclkit

import (
	"context"
	"strings"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// RESOURCE LIFECYCLE
// ============================================================================

// CreateResource creates a resource owned by the creator. The creator
// receives an Owner grant in the same transaction, so a resource never
// exists without an owner. An optional secret payload is stored for the
// creator.
func (s *Service) CreateResource(ctx context.Context, ownerID, name, secretData string) (*Resource, error) {
	if err := validateID(ownerID, "owner id"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(ErrValidation, "the resource name should not be empty").WithUser(ownerID)
	}
	if _, err := s.findLiveUser(ctx, ownerID); err != nil {
		return nil, err
	}

	resource := &Resource{ID: NewID(), Name: name}
	err := s.Transaction(ctx, func(tx *Service) error {
		_, err := tx.db.NewInsert().Model(resource).Exec(ctx)
		if err := dbkit.WithErr1(err, "CreateResource").Err(); err != nil {
			return err
		}

		perm := &Permission{
			ID:            NewID(),
			Aco:           AcoResource,
			AcoForeignKey: resource.ID,
			Aro:           AroUser,
			AroForeignKey: ownerID,
			Type:          PermissionOwner,
		}
		_, err = tx.db.NewInsert().Model(perm).Exec(ctx)
		if err := dbkit.WithErr1(err, "CreateResource").Err(); err != nil {
			return err
		}

		if secretData != "" {
			secret := &Secret{
				ID:         NewID(),
				ResourceID: resource.ID,
				UserID:     ownerID,
				Data:       secretData,
			}
			_, err = tx.db.NewInsert().Model(secret).Exec(ctx)
			if err := dbkit.WithErr1(err, "CreateResource").Err(); err != nil {
				return err
			}
		}

		_ = tx.logAudit(ctx, &AuditEntry{
			Action:         AuditActionGranted,
			Aro:            AroUser,
			AroForeignKey:  ownerID,
			AcoForeignKey:  resource.ID,
			PermissionType: PermissionOwner,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.V(1).Info("resource created", "resource_id", resource.ID, "owner_id", ownerID)
	return resource, nil
}

// DeleteResource soft-deletes a resource on behalf of an owner. Only
// holders of the Owner type may delete; to everyone else the resource does
// not exist once checked. Permissions, secrets, favorites and tag links
// are removed with it.
func (s *Service) DeleteResource(ctx context.Context, actorID, resourceID string) error {
	if err := validateID(actorID, "actor id"); err != nil {
		return err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return err
	}

	highest, err := s.HighestPermissionType(ctx, actorID, resourceID)
	if err != nil {
		return err
	}
	if !highest.Allows(PermissionOwner) {
		return NewError(ErrNotFound, "the resource does not exist").
			WithUser(actorID).
			WithResource(resourceID)
	}

	return s.Transaction(ctx, func(tx *Service) error {
		if err := tx.softDeleteResources(ctx, []string{resourceID}); err != nil {
			return err
		}
		if err := tx.DeleteUnusedTags(ctx); err != nil {
			return err
		}

		_ = tx.logAudit(ctx, &AuditEntry{
			ActorID:       actorID,
			Action:        AuditActionResourceDeleted,
			AcoForeignKey: resourceID,
		})
		return nil
	})
}

// FindResourcesForUser returns the non-deleted resources the user can
// reach, ordered by name.
func (s *Service) FindResourcesForUser(ctx context.Context, userID string) ([]Resource, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}

	var resources []Resource
	err := s.db.NewSelect().
		Model(&resources).
		Where("r.deleted = ?", false).
		Where(`EXISTS (
			SELECT 1 FROM permissions AS p
			WHERE p.aco_foreign_key = r.id
			AND (p.aro_foreign_key = ?
				OR p.aro_foreign_key IN (
					SELECT gu.group_id FROM groups_users AS gu
					JOIN groups AS g ON g.id = gu.group_id
					WHERE gu.user_id = ? AND g.deleted = FALSE)))`,
			userID, userID).
		Order("r.name ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "FindResourcesForUser").Err(); err != nil {
		return nil, err
	}
	return resources, nil
}
