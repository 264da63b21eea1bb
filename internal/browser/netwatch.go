package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const idleCheckFrequency = 100 * time.Millisecond

// netTracker counts in-flight network requests on a tab so callers can wait
// for the page to settle after a navigation or click.
type netTracker struct {
	mu     sync.Mutex
	active int
}

func newNetTracker() *netTracker {
	return &netTracker{}
}

// listen attaches CDP network listeners to the tab context. Data URLs never
// produce loading events and are not counted.
func (t *netTracker) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			t.mu.Lock()
			t.active++
			t.mu.Unlock()
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			t.mu.Lock()
			if t.active > 0 {
				t.active--
			}
			t.mu.Unlock()
		}
	})
}

func (t *netTracker) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// waitIdle blocks until the tab has had zero in-flight requests for the
// quiet period, or the context expires. The quiet timer only runs while the
// network is actually idle.
func (t *netTracker) waitIdle(ctx context.Context, quietPeriod time.Duration) error {
	timer := time.NewTimer(quietPeriod)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	idle := false
	ticker := time.NewTicker(idleCheckFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			if t.inFlight() > 0 {
				if idle {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					idle = false
				}
				continue
			}
			if !idle {
				timer.Reset(quietPeriod)
				idle = true
			}
		}
	}
}
