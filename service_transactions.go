package aclkit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction executes a function within a database transaction with
// automatic commit/rollback. The function receives a Service bound to the
// transaction; all operations performed through it share one snapshot.
// If the function returns an error, the transaction is rolled back.
//
// Example:
//
//	err := service.Transaction(ctx, func(tx *aclkit.Service) error {
//	    if err := tx.Grant(ctx, aclkit.AroUser, bobID, resourceID, aclkit.PermissionOwner); err != nil {
//	        return err // rollback
//	    }
//	    return tx.Revoke(ctx, aliceID, resourceID) // nil commits
//	})
func (s *Service) Transaction(ctx context.Context, fn func(tx *Service) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Already in a transaction, nest via savepoint.
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(s.withDB(tx))
		})
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	s.txMonitor.recordTransaction(time.Since(start), err == nil)

	return err
}

// TransactionWithOptions executes a function within a database transaction
// with custom options, such as a stronger isolation level.
//
// Example:
//
//	err := service.TransactionWithOptions(ctx, dbkit.SerializableTxOptions(), func(tx *aclkit.Service) error {
//	    return tx.Grant(ctx, aclkit.AroGroup, groupID, resourceID, aclkit.PermissionRead)
//	})
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(tx *Service) error) error {
	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Nested transactions use savepoints; options do not apply.
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(s.withDB(tx))
		})
	case *dbkit.DBKit:
		return db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(s.withDB(tx))
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// ReadOnlyTransaction executes a function within a read-only database
// transaction. Useful for multi-query reads that need one consistent view,
// such as resolving access and listing holders together.
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(tx *Service) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}
