package relay

import (
	"sync"
	"time"

	"RGBStd/internal/containers"
)

const (
	// recentTTL is how long an accepted transfer is answered without the handler.
	recentTTL = 30 * time.Second

	// cleanupInterval is the interval between cleanup runs.
	cleanupInterval = 5 * time.Second
)

// claimResult is the outcome of recent.claim.
type claimResult int

const (
	claimed  claimResult = iota // claimed means the caller now owns the delivery
	accepted                    // accepted means the transfer was accepted within the TTL
	inFlight                    // inFlight means another delivery of the transfer is running
)

// entry is the state of one transfer id.
type entry struct {
	at   int64 // at is the acceptance time (unix nano), zero while in flight
	done bool  // done is set once the handler accepted the transfer
}

// recent tracks transfers being handled and those accepted recently, so a
// duplicate delivery never runs the handler twice.
type recent struct {
	seen map[containers.TransferID]entry // seen maps transfer id to its state
	mu   sync.Mutex                      // mu protects seen
	ttl  int64                           // ttl in nanoseconds
	stop chan struct{}                   // stop ends the cleanup goroutine
	once sync.Once                       // once guards close
	wg   sync.WaitGroup
}

func newRecent(ttl time.Duration) *recent {
	r := &recent{
		seen: make(map[containers.TransferID]entry),
		ttl:  int64(ttl),
		stop: make(chan struct{}),
	}

	r.startCleanup()

	return r
}

// claim marks id as in flight unless it is already in flight or was
// accepted within the TTL.
func (r *recent) claim(id containers.TransferID) claimResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.seen[id]; ok {
		if !e.done {
			return inFlight
		}

		if time.Now().UnixNano()-e.at < r.ttl {
			return accepted
		}
	}

	r.seen[id] = entry{}

	return claimed
}

// accept records a claimed id as accepted now.
func (r *recent) accept(id containers.TransferID) {
	r.mu.Lock()
	r.seen[id] = entry{at: time.Now().UnixNano(), done: true}
	r.mu.Unlock()
}

// release drops a claim whose delivery was rejected, so it can be retried.
func (r *recent) release(id containers.TransferID) {
	r.mu.Lock()
	if e, ok := r.seen[id]; ok && !e.done {
		delete(r.seen, id)
	}
	r.mu.Unlock()
}

func (r *recent) close() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *recent) startCleanup() {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.cleanup()
			case <-r.stop:
				return
			}
		}
	}()
}

// cleanup removes expired accepted entries; claims stay until released.
func (r *recent) cleanup() {
	now := time.Now().UnixNano()

	r.mu.Lock()
	for id, e := range r.seen {
		if e.done && now-e.at >= r.ttl {
			delete(r.seen, id)
		}
	}
	r.mu.Unlock()
}
