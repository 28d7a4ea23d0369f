package retry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pos-service/internal/remote"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// State is the process-wide connectivity flag for the remote store.
type State int32

const (
	StateUnknown State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Health tracks connectivity state and the retry bookkeeping around
// it. Foreground operations and the background monitor only flip the
// flag; neither holds a lock across remote calls.
type Health struct {
	state int32

	mu          sync.Mutex
	lastFailure time.Time
	nextRetry   time.Time

	logger *zap.Logger
}

func NewHealth() *Health {
	return &Health{logger: util.GetLogger()}
}

func (h *Health) State() State {
	return State(atomic.LoadInt32(&h.state))
}

// MarkConnected records a successful round-trip.
func (h *Health) MarkConnected() {
	prev := State(atomic.SwapInt32(&h.state, int32(StateConnected)))
	util.ConnectivityState.Set(float64(StateConnected))
	if prev == StateDisconnected {
		h.logger.Info("Remote store reachable again")
	}
}

// MarkDisconnected records an exhausted retry budget and when the
// next reconnect attempt is allowed.
func (h *Health) MarkDisconnected(nextRetry time.Time) {
	atomic.StoreInt32(&h.state, int32(StateDisconnected))
	util.ConnectivityState.Set(float64(StateDisconnected))

	h.mu.Lock()
	h.lastFailure = time.Now()
	h.nextRetry = nextRetry
	h.mu.Unlock()

	h.logger.Warn("Remote store marked disconnected",
		zap.Time("next_retry", nextRetry))
}

// LastFailure returns the most recent exhaustion and the next allowed
// retry time.
func (h *Health) LastFailure() (failedAt, nextRetry time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastFailure, h.nextRetry
}

// Monitor pings the store every interval and flips the connectivity
// flag accordingly. It runs until ctx is cancelled and never touches
// business state.
func (h *Health) Monitor(ctx context.Context, store remote.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Ping(ctx); err != nil {
				if h.State() != StateDisconnected {
					h.MarkDisconnected(time.Now().Add(every))
				}
				continue
			}
			h.MarkConnected()
		}
	}
}
