package aclkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// FAVORITES
// ============================================================================

// AddFavorite marks a resource as a favorite of the user. The user must
// have access to the resource; ErrNotFound otherwise. Favoriting twice
// returns ErrAlreadyExists.
func (s *Service) AddFavorite(ctx context.Context, userID, resourceID string) (*Favorite, error) {
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
		return nil, NewError(ErrNotFound, "the resource does not exist").
			WithUser(userID).
			WithResource(resourceID)
	}

	fav := &Favorite{
		ID:         NewID(),
		UserID:     userID,
		ResourceID: resourceID,
	}
	result, err := s.db.NewInsert().
		Model(fav).
		On("CONFLICT (user_id, resource_id) DO NOTHING").
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "AddFavorite").Err(); err != nil {
		return nil, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, NewError(ErrAlreadyExists, "the resource is already a favorite").
			WithUser(userID).
			WithResource(resourceID)
	}
	return fav, nil
}

// DeleteFavorite removes a favorite by id. Only the favorite's owner may
// remove it; to anyone else the favorite does not exist.
func (s *Service) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	if err := validateID(userID, "user id"); err != nil {
		return err
	}
	if err := validateID(favoriteID, "favorite id"); err != nil {
		return err
	}

	result, err := s.db.NewDelete().
		Model((*Favorite)(nil)).
		Where("id = ?", favoriteID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err := dbkit.WithErr1(err, "DeleteFavorite").Err(); err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return NewError(ErrNotFound, "the favorite does not exist").WithUser(userID)
	}
	return nil
}

// ListFavorites returns the user's favorites for resources that still
// exist.
func (s *Service) ListFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	if err := validateID(userID, "user id"); err != nil {
		return nil, err
	}

	var favs []Favorite
	err := s.db.NewSelect().
		Model(&favs).
		Join("JOIN resources AS r ON r.id = f.resource_id").
		Where("f.user_id = ?", userID).
		Where("r.deleted = ?", false).
		Order("f.created_at ASC").
		Scan(ctx)
	if err := dbkit.WithErr1(err, "ListFavorites").Err(); err != nil {
		return nil, err
	}
	return favs, nil
}
