package aclkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// AUDIT LOG
// ============================================================================

// logAudit persists an audit entry, filling actor and request metadata from
// the context. Callers treat failures as non-fatal.
func (s *Service) logAudit(ctx context.Context, entry *AuditEntry) error {
	audit := GetAuditContext(ctx)
	if entry.ActorID == "" {
		entry.ActorID = audit.ActorID
	}
	entry.IPAddress = audit.IPAddress
	entry.UserAgent = audit.UserAgent
	entry.RequestID = audit.RequestID

	_, err := s.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}

// GetAuditLog returns audit log entries matching the filter, newest first.
//
// Example:
//
//	entries, err := service.GetAuditLog(ctx,
//	    NewAuditLogFilter().
//	        WithResource(resourceID).
//	        WithAction(AuditActionGranted).
//	        WithLimit(50))
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AccessAuditLog, error) {
	var entries []AccessAuditLog

	q := s.db.NewSelect().
		Model(&entries).
		Order("aal.timestamp DESC")

	if filter.ActorID != "" {
		q = q.Where("aal.actor_id = ?", filter.ActorID)
	}
	if filter.AroForeignKey != "" {
		q = q.Where("aal.aro_foreign_key = ?", filter.AroForeignKey)
	}
	if filter.AcoForeignKey != "" {
		q = q.Where("aal.aco_foreign_key = ?", filter.AcoForeignKey)
	}
	if filter.Action != "" {
		q = q.Where("aal.action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("aal.timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("aal.timestamp <= ?", filter.Until)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	err := q.Scan(ctx)
	if err := dbkit.WithErr1(err, "GetAuditLog").Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
