package webhook

import (
	"net/http"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight bounds concurrent background requests when no limit is
// given.
const DefaultMaxInFlight = 64

// AsyncTransport sends requests in the background with a bound on how many
// may be in flight at once.
type AsyncTransport struct {
	client Doer
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

// NewAsyncTransport wraps client. maxInFlight <= 0 selects
// DefaultMaxInFlight.
func NewAsyncTransport(client Doer, maxInFlight int64) *AsyncTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &AsyncTransport{
		client: client,
		sem:    semaphore.NewWeighted(maxInFlight),
	}
}

// Submit starts req in the background and calls done with the outcome. It
// returns false without sending when the in-flight limit is reached.
func (t *AsyncTransport) Submit(req *http.Request, done func(*http.Response, error)) bool {
	if !t.sem.TryAcquire(1) {
		return false
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.sem.Release(1)
		done(t.client.Do(req))
	}()
	return true
}

// Wait blocks until every submitted request has completed.
func (t *AsyncTransport) Wait() {
	t.wg.Wait()
}
