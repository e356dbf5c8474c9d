package aclkit

import "context"

// Checker provides permission checking capabilities for a specific user.
// It is typically created by the Service and stored in context for use in
// handlers. Checks always hit the database, so they reflect membership and
// grant changes immediately.
type Checker struct {
	userID  string
	service *Service
}

// NewChecker creates a new Checker for a user.
func NewChecker(userID string, service *Service) *Checker {
	return &Checker{
		userID:  userID,
		service: service,
	}
}

// UserID returns the user ID this checker is for.
func (c *Checker) UserID() string {
	return c.userID
}

// HasAccess checks if the user holds any permission on the resource.
//
// Example:
//
//	if checker.HasAccess(ctx, resourceID) {
//	    // User can see this resource
//	}
func (c *Checker) HasAccess(ctx context.Context, resourceID string) bool {
	ok, err := c.service.HasAccess(ctx, c.userID, resourceID)
	if err != nil {
		return false
	}
	return ok
}

// Can checks if the user's strongest permission on the resource reaches
// the required type.
//
// Example:
//
//	if checker.Can(ctx, resourceID, PermissionUpdate) {
//	    // User may modify this resource
//	}
func (c *Checker) Can(ctx context.Context, resourceID string, required PermissionType) bool {
	highest, err := c.service.HighestPermissionType(ctx, c.userID, resourceID)
	if err != nil {
		return false
	}
	return highest.Allows(required)
}

// CanRead checks if the user may read the resource.
func (c *Checker) CanRead(ctx context.Context, resourceID string) bool {
	return c.Can(ctx, resourceID, PermissionRead)
}

// CanUpdate checks if the user may modify the resource.
func (c *Checker) CanUpdate(ctx context.Context, resourceID string) bool {
	return c.Can(ctx, resourceID, PermissionUpdate)
}

// IsOwner checks if the user owns the resource, directly or through a
// group.
func (c *Checker) IsOwner(ctx context.Context, resourceID string) bool {
	return c.Can(ctx, resourceID, PermissionOwner)
}

// NewCheckerForUser creates a Checker bound to this service for the user.
func (s *Service) NewCheckerForUser(userID string) *Checker {
	return NewChecker(userID, s)
}
