package gesture

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"cafe-board-backend/internal/model"
)

// CompleteThreshold is the displacement ratio at and above which a released
// drag commits the order as completed.
const CompleteThreshold = 0.8

// commitTimeout bounds the backend calls issued from commit goroutines,
// which outlive the HTTP request that triggered them.
const commitTimeout = 15 * time.Second

// Board is the slice of the order store the gesture tracker drives.
type Board interface {
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	RemoveOrder(orderID string) bool
	Refetch(ctx context.Context) error
	SetError(msg string)
	StatusView() model.OrderStatus
}

// Tracker runs the per-order drag state machine:
//
//	idle -> dragging -> (committing | resetting) -> idle
//
// Progress is a clamped [0,1] value per order id. Releasing at or past the
// threshold optimistically marks the order done, issues the status call, and
// removes the card after a short exit-animation delay on success; failure
// rolls the optimistic mark back and resynchronizes the list. Orders drag
// independently of each other.
type Tracker struct {
	mu       sync.Mutex
	board    Board
	progress map[string]float64
	done     map[string]struct{}
	timers   map[string]*time.Timer

	removalDelay time.Duration
	resetDelay   time.Duration
	closed       bool
}

// NewTracker creates a tracker. removalDelay is the pause between a
// confirmed completion and the card's removal; resetDelay is the snap-back
// pause before progress returns to zero on an aborted drag.
func NewTracker(board Board, removalDelay, resetDelay time.Duration) *Tracker {
	return &Tracker{
		board:        board,
		progress:     make(map[string]float64),
		done:         make(map[string]struct{}),
		timers:       make(map[string]*time.Timer),
		removalDelay: removalDelay,
		resetDelay:   resetDelay,
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Move records continuous drag progress for an order and returns the clamped
// value. An order already committing keeps progress pinned at 1.
func (t *Tracker) Move(orderID string, progress float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0
	}
	if _, committing := t.done[orderID]; committing {
		return 1
	}
	if timer, ok := t.timers[orderID]; ok {
		// A fresh drag supersedes a pending snap-back.
		timer.Stop()
		delete(t.timers, orderID)
	}
	p := clamp(progress)
	t.progress[orderID] = p
	return p
}

// End finishes a drag with the final displacement ratio and reports whether
// the release committed the order. Ratios at or past the threshold commit;
// anything less snaps back.
func (t *Tracker) End(orderID string, ratio float64) bool {
	ratio = clamp(ratio)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	if _, committing := t.done[orderID]; committing {
		// Release events can repeat; the first one already decided.
		t.mu.Unlock()
		return true
	}

	if ratio >= CompleteThreshold {
		t.done[orderID] = struct{}{}
		t.progress[orderID] = 1
		t.mu.Unlock()
		go t.commit(orderID)
		return true
	}

	t.scheduleLocked(orderID, t.resetDelay, func() {
		t.progress[orderID] = 0
	})
	t.mu.Unlock()
	return false
}

// commit drives the optimistic completion: the order is already in the done
// set, so the card is animating out while the status call is in flight.
func (t *Tracker) commit(orderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	if err := t.board.UpdateStatus(ctx, orderID, model.StatusCompleted); err != nil {
		logger.Errorf("Failed to complete order %s: %v", orderID, err)
		t.rollback(orderID)
		t.board.SetError("failed to complete order")
		if rerr := t.board.Refetch(ctx); rerr != nil {
			logger.Warningf("Resync after failed completion also failed: %v", rerr)
		}
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.scheduleLocked(orderID, t.removalDelay, func() {
		t.board.RemoveOrder(orderID)
		t.forgetLocked(orderID)
	})
	t.mu.Unlock()
}

// rollback reverses the optimistic done mark after a rejected completion.
func (t *Tracker) rollback(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.done, orderID)
	t.progress[orderID] = 0
}

// Reopen moves a completed order back to processing. There is no gesture
// here: when the completed view is showing, the card is dropped immediately
// on call initiation, and a failed call only triggers a resync fetch, never
// a local re-insertion.
func (t *Tracker) Reopen(orderID string) {
	if t.board.StatusView() == model.StatusCompleted {
		t.board.RemoveOrder(orderID)
		t.Forget(orderID)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		if err := t.board.UpdateStatus(ctx, orderID, model.StatusProcessing); err != nil {
			logger.Errorf("Failed to reopen order %s: %v", orderID, err)
			t.board.SetError("failed to reopen order")
			if rerr := t.board.Refetch(ctx); rerr != nil {
				logger.Warningf("Resync after failed reopen also failed: %v", rerr)
			}
		}
	}()
}

// Progress returns the current drag progress for an order.
func (t *Tracker) Progress(orderID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress[orderID]
}

// Completing reports whether the order sits in the optimistic done set.
func (t *Tracker) Completing(orderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.done[orderID]
	return ok
}

// Forget drops all drag state and pending timers for an order. Called when
// the order leaves the board by any path, so a dangling timer can never fire
// against an id that is no longer relevant.
func (t *Tracker) Forget(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forgetLocked(orderID)
}

func (t *Tracker) forgetLocked(orderID string) {
	if timer, ok := t.timers[orderID]; ok {
		timer.Stop()
		delete(t.timers, orderID)
	}
	delete(t.progress, orderID)
	delete(t.done, orderID)
}

// scheduleLocked arms a per-order timer, replacing any pending one. fn runs
// under the tracker lock and is skipped after Stop or Forget.
func (t *Tracker) scheduleLocked(orderID string, d time.Duration, fn func()) {
	if timer, ok := t.timers[orderID]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed || t.timers[orderID] != timer {
			return
		}
		delete(t.timers, orderID)
		fn()
	})
	t.timers[orderID] = timer
}

// Stop cancels all pending timers and refuses further gesture input.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
