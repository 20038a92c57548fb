package broker

import (
	"sync"
	"time"

	"github.com/rxtech-lab/tickflow/internal/types"
)

// PendingRequests correlates generic replies back to the order requests that
// produced them, keyed by transaction id. Correlation is best effort: entries
// older than the TTL are evicted, and replies with no matching entry are
// simply unmatched.
type PendingRequests struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uint64]pendingEntry
	now     func() time.Time
}

type pendingEntry struct {
	request types.OrderRequest
	sentAt  time.Time
}

// NewPendingRequests creates an empty correlation map with the given TTL.
func NewPendingRequests(ttl time.Duration) *PendingRequests {
	return &PendingRequests{
		ttl:     ttl,
		entries: make(map[uint64]pendingEntry),
		now:     time.Now,
	}
}

// Track records an in-flight request.
func (p *PendingRequests) Track(request types.OrderRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries[request.TransID] = pendingEntry{
		request: request,
		sentAt:  p.now(),
	}
}

// Resolve matches a reply to its request and removes the entry. The second
// return value reports whether the reply correlated to a tracked request.
func (p *PendingRequests) Resolve(reply types.Reply) (types.OrderRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[reply.TransID]
	if !ok {
		return types.OrderRequest{}, false
	}

	delete(p.entries, reply.TransID)

	return entry.request, true
}

// Sweep evicts entries older than the TTL and returns how many were dropped.
func (p *PendingRequests) Sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	evicted := 0

	for transID, entry := range p.entries {
		if now.Sub(entry.sentAt) > p.ttl {
			delete(p.entries, transID)
			evicted++
		}
	}

	return evicted
}

// Len returns the number of in-flight entries.
func (p *PendingRequests) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}
