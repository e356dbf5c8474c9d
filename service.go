package aclkit

import (
	"log"
	"os"

	"github.com/fernandezvara/dbkit"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Service provides access resolution, permission management and the
// cascading user deletion for shared resources.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations. Domain outcomes are reported
// through the package sentinels, for example:
//
//	err := service.SoftDeleteUser(ctx, userID)
//	if verr := aclkit.AsValidationError(err); verr != nil {
//	    // verr.Tags carries every delete rule that vetoed the removal
//	}
//	if aclkit.IsNotFound(err) {
//	    // unknown or already deleted user
//	}
type Service struct {
	db        dbkit.IDB
	log       logr.Logger
	notifier  NotificationSink
	rules     []DeleteRule
	txMonitor *transactionMonitor
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for cascade progress and notification
// failures. Hot-path access checks never log.
func WithLogger(l logr.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithNotifier sets the fire-and-forget notification sink invoked after
// successful mutations.
func WithNotifier(n NotificationSink) Option {
	return func(s *Service) { s.notifier = n }
}

// DefaultLogger returns the stderr logger used when none is configured
// explicitly via WithLogger.
func DefaultLogger() logr.Logger {
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// NewService creates a new aclkit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := aclkit.NewService(db, aclkit.WithLogger(logger))
func NewService(db dbkit.IDB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		log:       logr.Discard(),
		notifier:  discardSink{},
		rules:     defaultDeleteRules(),
		txMonitor: newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withDB returns a copy of the service bound to tx, sharing the logger,
// notifier, rules and monitor. Used to run operations inside a transaction.
func (s *Service) withDB(db dbkit.IDB) *Service {
	clone := *s
	clone.db = db
	return &clone
}
