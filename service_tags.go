package aclkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// TAGS
// ============================================================================

// AddResourceTag attaches a tag to a resource for the user. Tags are
// personal: each association belongs to the user who made it and dies with
// them. The tag row itself is shared by slug and created on first use.
// The user must have access to the resource.
func (s *Service) AddResourceTag(ctx context.Context, userID, resourceID, slug string) (*ResourceTag, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, NewError(ErrValidation, "the tag slug should not be empty").
			WithUser(userID).
			WithResource(resourceID)
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

	var link *ResourceTag
	err = s.Transaction(ctx, func(tx *Service) error {
		tagID, err := tx.findOrCreateTag(ctx, slug)
		if err != nil {
			return err
		}

		link = &ResourceTag{
			ID:         NewID(),
			ResourceID: resourceID,
			TagID:      tagID,
			UserID:     userID,
		}
		result, err := tx.db.NewInsert().
			Model(link).
			On("CONFLICT (resource_id, tag_id, user_id) DO NOTHING").
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "AddResourceTag").Err(); err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return NewError(ErrAlreadyExists, "the resource already carries this tag").
				WithUser(userID).
				WithResource(resourceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// DeleteResourceTag removes the user's tag association and garbage
// collects the tag if nothing references it anymore.
func (s *Service) DeleteResourceTag(ctx context.Context, userID, resourceID, slug string) error {
	if err := validateID(userID, "user id"); err != nil {
		return err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return err
	}
	slug = NormalizeSlug(slug)

	return s.Transaction(ctx, func(tx *Service) error {
		result, err := tx.db.NewDelete().
			Model((*ResourceTag)(nil)).
			Where("user_id = ?", userID).
			Where("resource_id = ?", resourceID).
			Where("tag_id IN (SELECT id FROM tags WHERE slug = ?)", slug).
			Exec(ctx)
		if err := dbkit.WithErr1(err, "DeleteResourceTag").Err(); err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return NewError(ErrNotFound, "the tag does not exist").
				WithUser(userID).
				WithResource(resourceID)
		}
		return tx.DeleteUnusedTags(ctx)
	})
}

// ListResourceTags returns the user's tags on a resource.
func (s *Service) ListResourceTags(ctx context.Context, userID, resourceID string) ([]Tag, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}

	var tags []Tag
	err := s.db.NewSelect().
		Model(&tags).
		Join("JOIN resources_tags AS rt ON rt.tag_id = t.id").
		Where("rt.user_id = ?", userID).
		Where("rt.resource_id = ?", resourceID).
		Order("t.slug ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "ListResourceTags").Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteUnusedTags purges tags with no remaining resource associations.
func (s *Service) DeleteUnusedTags(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*Tag)(nil)).
		Where("id NOT IN (SELECT tag_id FROM resources_tags)").
		Exec(ctx)
	return dbkit.WithErr1(err, "DeleteUnusedTags").Err()
}

// findOrCreateTag returns the id of the tag with the slug, creating it on
// first use.
func (s *Service) findOrCreateTag(ctx context.Context, slug string) (string, error) {
	tag := &Tag{ID: NewID(), Slug: slug}
	_, err := s.db.NewInsert().
		Model(tag).
		On("CONFLICT (slug) DO NOTHING").
		Exec(ctx)
	if err := dbkit.WithErr1(err, "FindOrCreateTag").Err(); err != nil {
		return "", err
	}

	var existing Tag
	err = s.db.NewSelect().
		Model(&existing).
		Where("t.slug = ?", slug).
		Scan(ctx)
	if err := dbkit.WithErr1(err, "FindOrCreateTag").Err(); err != nil {
		return "", err
	}
	return existing.ID, nil
}

// countTags is used by tests to assert garbage collection.
func (s *Service) countTags(ctx context.Context) (int, error) {
	n, err := dbkit.Count[Tag](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
	return n, dbkit.WithErr1(err, "CountTags").Err()
}
