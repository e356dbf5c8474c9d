package aclkit

import (
	"sync"
	"time"
)

// TransactionMetrics provides transaction performance and failure statistics.
type TransactionMetrics struct {
	TotalTransactions      int64         `json:"total_transactions"`
	SuccessfulTransactions int64         `json:"successful_transactions"`
	FailedTransactions     int64         `json:"failed_transactions"`
	AverageDuration        time.Duration `json:"average_duration"`
	MaxDuration            time.Duration `json:"max_duration"`
	MinDuration            time.Duration `json:"min_duration"`
	LastReset              time.Time     `json:"last_reset"`
}

// transactionMonitor holds the internal transaction monitoring state.
type transactionMonitor struct {
	mu            sync.Mutex
	totalCount    int64
	successCount  int64
	failureCount  int64
	totalDuration time.Duration
	maxDuration   time.Duration
	minDuration   time.Duration
	lastReset     time.Time
}

func newTransactionMonitor() *transactionMonitor {
	return &transactionMonitor{
		minDuration: time.Hour, // sentinel until the first sample
		lastReset:   time.Now(),
	}
}

// recordTransaction records a completed transaction with its duration and
// success status.
func (tm *transactionMonitor) recordTransaction(duration time.Duration, success bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount++
	tm.totalDuration += duration
	if success {
		tm.successCount++
	} else {
		tm.failureCount++
	}
	if duration > tm.maxDuration {
		tm.maxDuration = duration
	}
	if duration < tm.minDuration {
		tm.minDuration = duration
	}
}

// getMetrics returns a snapshot of the current transaction metrics.
func (tm *transactionMonitor) getMetrics() TransactionMetrics {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var avg time.Duration
	if tm.totalCount > 0 {
		avg = tm.totalDuration / time.Duration(tm.totalCount)
	}

	return TransactionMetrics{
		TotalTransactions:      tm.totalCount,
		SuccessfulTransactions: tm.successCount,
		FailedTransactions:     tm.failureCount,
		AverageDuration:        avg,
		MaxDuration:            tm.maxDuration,
		MinDuration:            tm.minDuration,
		LastReset:              tm.lastReset,
	}
}

// reset clears all metrics.
func (tm *transactionMonitor) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount = 0
	tm.successCount = 0
	tm.failureCount = 0
	tm.totalDuration = 0
	tm.maxDuration = 0
	tm.minDuration = time.Hour
	tm.lastReset = time.Now()
}

// GetTransactionMetrics returns the current transaction performance metrics.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics resets all transaction metrics.
func (s *Service) ResetTransactionMetrics() {
	s.txMonitor.reset()
}

// IsTransactionHealthy checks if transaction performance is within
// acceptable thresholds.
func (s *Service) IsTransactionHealthy() bool {
	metrics := s.txMonitor.getMetrics()

	// Too few samples to judge.
	if metrics.TotalTransactions < 10 {
		return true
	}

	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}

	return metrics.AverageDuration <= time.Second
}
