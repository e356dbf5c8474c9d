package aclkit

import "time"

// AuditLogFilter provides options for filtering audit log queries.
type AuditLogFilter struct {
	// Filter by actor who performed the action
	ActorID string

	// Filter by the ARO the action targeted (user or group id)
	AroForeignKey string

	// Filter by the resource the action targeted
	AcoForeignKey string

	// Filter by action type ("granted", "revoked", "user_deleted", ...)
	Action string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: 100,
	}
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithAro sets the target ARO filter.
func (f AuditLogFilter) WithAro(aroForeignKey string) AuditLogFilter {
	f.AroForeignKey = aroForeignKey
	return f
}

// WithResource sets the target resource filter.
func (f AuditLogFilter) WithResource(resourceID string) AuditLogFilter {
	f.AcoForeignKey = resourceID
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action AuditAction) AuditLogFilter {
	f.Action = string(action)
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f AuditLogFilter) WithSince(since time.Time) AuditLogFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f AuditLogFilter) WithUntil(until time.Time) AuditLogFilter {
	f.Until = until
	return f
}

// WithLimit sets the limit for results.
func (f AuditLogFilter) WithLimit(limit int) AuditLogFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f AuditLogFilter) WithOffset(offset int) AuditLogFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// UserFilter provides options for filtering user index queries.
type UserFilter struct {
	// Case-insensitive match over username, first and last name
	Search string

	// Only users with access to this resource
	HasAccessTo string

	// Only users without any permission on this resource
	LacksPermissionOn string

	// Only members of this group
	MemberOf string

	// Include inactive users; only honoured for admin requesters
	IncludeInactive bool

	// Pagination
	Limit  int
	Offset int
}

// NewUserFilter creates a new UserFilter with default values.
func NewUserFilter() UserFilter {
	return UserFilter{
		Limit: 100,
	}
}

// WithSearch sets the name search filter.
func (f UserFilter) WithSearch(search string) UserFilter {
	f.Search = search
	return f
}

// WithAccessTo restricts results to users with access to the resource.
func (f UserFilter) WithAccessTo(resourceID string) UserFilter {
	f.HasAccessTo = resourceID
	return f
}

// WithoutPermissionOn restricts results to users lacking any permission on
// the resource.
func (f UserFilter) WithoutPermissionOn(resourceID string) UserFilter {
	f.LacksPermissionOn = resourceID
	return f
}

// WithGroup restricts results to members of the group.
func (f UserFilter) WithGroup(groupID string) UserFilter {
	f.MemberOf = groupID
	return f
}

// WithInactive includes inactive users in results.
func (f UserFilter) WithInactive() UserFilter {
	f.IncludeInactive = true
	return f
}

// WithPagination sets both limit and offset.
func (f UserFilter) WithPagination(limit, offset int) UserFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// SearchFilter narrows share candidate searches.
type SearchFilter struct {
	// Case-insensitive match over user names and group names
	Search string

	// Pagination
	Limit  int
	Offset int
}

// NewSearchFilter creates a new SearchFilter with default values.
func NewSearchFilter() SearchFilter {
	return SearchFilter{
		Limit: 25,
	}
}

// WithSearch sets the name search filter.
func (f SearchFilter) WithSearch(search string) SearchFilter {
	f.Search = search
	return f
}

// WithPagination sets both limit and offset.
func (f SearchFilter) WithPagination(limit, offset int) SearchFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
