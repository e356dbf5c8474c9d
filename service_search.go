package aclkit

import (
	"context"
	"sort"
	"strings"
)

// ============================================================================
// SHARE CANDIDATE SEARCH
// ============================================================================

// ShareCandidate is a user or group that could be granted access to a
// resource.
type ShareCandidate struct {
	// Aro is AroUser or AroGroup.
	Aro string `json:"aro"`

	// ID of the user or group.
	ID string `json:"id"`

	// Name is the username or group name.
	Name string `json:"name"`
}

// SearchShareCandidates returns the users and groups that could be granted
// access to the resource: active non-guest users and live groups without
// any permission on it, direct or inherited. Results are sorted
// alphabetically by name regardless of kind.
//
// The requester must already have access to the resource. A missing
// resource, a soft-deleted resource and a resource the requester cannot
// reach are indistinguishable; all three return ErrNotFound.
//
// Example:
//
//	candidates, err := service.SearchShareCandidates(ctx, requesterID, resourceID,
//	    NewSearchFilter().WithSearch("marketing"))
func (s *Service) SearchShareCandidates(ctx context.Context, requesterID, resourceID string, filter SearchFilter) ([]ShareCandidate, error) {
	if err := validateID(requesterID, "requester id"); err != nil {
		return nil, err
	}
	if err := validateID(resourceID, "resource id"); err != nil {
		return nil, err
	}

	ok, err := s.HasAccess(ctx, requesterID, resourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(ErrNotFound, "the resource does not exist").
			WithResource(resourceID).
			WithUser(requesterID)
	}

	users, err := s.FindUsersLackingPermission(ctx, resourceID, filter.Search)
	if err != nil {
		return nil, err
	}
	groups, err := s.FindGroupsLackingPermission(ctx, resourceID, filter.Search)
	if err != nil {
		return nil, err
	}

	candidates := make([]ShareCandidate, 0, len(users)+len(groups))
	for i := range users {
		candidates = append(candidates, ShareCandidate{
			Aro:  AroUser,
			ID:   users[i].ID,
			Name: users[i].DisplayName(),
		})
	}
	for i := range groups {
		candidates = append(candidates, ShareCandidate{
			Aro:  AroGroup,
			ID:   groups[i].ID,
			Name: groups[i].DisplayName(),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return strings.ToLower(candidates[i].Name) < strings.ToLower(candidates[j].Name)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(candidates) {
			return []ShareCandidate{}, nil
		}
		candidates = candidates[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(candidates) {
		candidates = candidates[:filter.Limit]
	}
	return candidates, nil
}
