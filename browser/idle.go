package browser

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// pollInterval is how often the idle waiter re-checks the tracker state.
const pollInterval = 50 * time.Millisecond

// inflightTracker counts in-flight network requests by request ID and records
// when the count last exceeded the allowed maximum. Redirect chains reuse a
// request ID, so tracking by ID avoids double-counting them.
type inflightTracker struct {
	mu          sync.Mutex
	maxInflight int
	inflight    map[proto.NetworkRequestID]struct{}
	lastBusy    time.Time
}

func newInflightTracker(maxInflight int, now time.Time) *inflightTracker {
	return &inflightTracker{
		maxInflight: maxInflight,
		inflight:    make(map[proto.NetworkRequestID]struct{}),
		lastBusy:    now,
	}
}

func (t *inflightTracker) begin(id proto.NetworkRequestID, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	if len(t.inflight) > t.maxInflight {
		t.lastBusy = now
	}
}

func (t *inflightTracker) finish(id proto.NetworkRequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
}

// idleSince reports whether the tracker has been at or below maxInflight for
// the full debounce window ending at now.
func (t *inflightTracker) idleSince(now time.Time, debounce time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inflight) > t.maxInflight {
		return false
	}
	return now.Sub(t.lastBusy) >= debounce
}

// watchMostlyIdle registers CDP network listeners on the page and returns a
// wait function. The wait resolves once no more than maxInflight requests have
// been in flight for a full debounce window — a "mostly idle" heuristic rather
// than strict completion, so pages with long-polling or analytics beacons
// still settle.
//
// Must be called before Navigate: the listeners only see requests issued after
// registration.
func watchMostlyIdle(ctx context.Context, page *rod.Page, maxInflight int, debounce time.Duration) func() error {
	tracker := newInflightTracker(maxInflight, time.Now())

	listenCtx, stopListening := context.WithCancel(ctx)
	lp := page.Context(listenCtx)

	go lp.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			tracker.begin(e.RequestID, time.Now())
		},
		func(e *proto.NetworkLoadingFinished) {
			tracker.finish(e.RequestID)
		},
		func(e *proto.NetworkLoadingFailed) {
			tracker.finish(e.RequestID)
		},
	)()

	return func() error {
		defer stopListening()

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				if tracker.idleSince(now, debounce) {
					return nil
				}
			}
		}
	}
}
