package aiengine

import (
	"sync/atomic"
	"time"

	"github.com/moldex-io/moldex/internal/platform/logging"
)

const (
	cbStateClosed   int32 = 0
	cbStateOpen     int32 = 1
	cbStateHalfOpen int32 = 2
)

// circuitBreaker guards the upstream prediction engine: after threshold
// consecutive failures it opens, rejecting calls for resetDuration, then
// allows one half-open probe before closing again.
type circuitBreaker struct {
	state            atomic.Int32
	consecutiveFails atomic.Int32
	threshold        int32
	resetDuration    time.Duration
	lastOpenTime     atomic.Int64
	halfOpenPermits  atomic.Int32
	logger           logging.Logger
}

func newCircuitBreaker(threshold int, resetDuration time.Duration, logger logging.Logger) *circuitBreaker {
	cb := &circuitBreaker{
		threshold:     int32(threshold),
		resetDuration: resetDuration,
		logger:        logger,
	}
	cb.state.Store(cbStateClosed)
	return cb
}

// allow reports whether a call may proceed, per the breaker's current state.
func (cb *circuitBreaker) allow() bool {
	if cb == nil || cb.threshold <= 0 {
		return true
	}
	switch cb.state.Load() {
	case cbStateClosed:
		return true
	case cbStateOpen:
		openedAt := cb.lastOpenTime.Load()
		if time.Since(time.Unix(0, openedAt)) >= cb.resetDuration {
			if cb.state.CompareAndSwap(cbStateOpen, cbStateHalfOpen) {
				cb.halfOpenPermits.Store(1)
				cb.logStateChange("OPEN", "HALF_OPEN")
			}
			return cb.halfOpenPermits.Add(-1) >= 0
		}
		return false
	case cbStateHalfOpen:
		return cb.halfOpenPermits.Add(-1) >= 0
	}
	return false
}

func (cb *circuitBreaker) recordSuccess() {
	if cb == nil || cb.threshold <= 0 {
		return
	}
	cb.consecutiveFails.Store(0)
	if cb.state.CompareAndSwap(cbStateHalfOpen, cbStateClosed) {
		cb.logStateChange("HALF_OPEN", "CLOSED")
	}
}

func (cb *circuitBreaker) recordFailure() {
	if cb == nil || cb.threshold <= 0 {
		return
	}
	fails := cb.consecutiveFails.Add(1)
	switch cb.state.Load() {
	case cbStateClosed:
		if fails >= cb.threshold {
			if cb.state.CompareAndSwap(cbStateClosed, cbStateOpen) {
				cb.lastOpenTime.Store(time.Now().UnixNano())
				cb.logStateChange("CLOSED", "OPEN")
			}
		}
	case cbStateHalfOpen:
		if cb.state.CompareAndSwap(cbStateHalfOpen, cbStateOpen) {
			cb.lastOpenTime.Store(time.Now().UnixNano())
			cb.logStateChange("HALF_OPEN", "OPEN")
		}
	}
}

func (cb *circuitBreaker) logStateChange(from, to string) {
	if cb.logger != nil {
		cb.logger.Info("prediction engine circuit breaker state change", logging.String("from", from), logging.String("to", to))
	}
}

func (cb *circuitBreaker) currentState() int32 {
	if cb == nil {
		return cbStateClosed
	}
	return cb.state.Load()
}
