package miner

import (
	"sync"

	"github.com/screa/nonce-miner/pkg/types"
)

// frontier hands out nonce chunks in increasing order and keeps the lowest
// match reported so far. Once a match at n is known, no chunk starting above n
// is handed out, so every nonce below the final match has been tried.
type frontier struct {
	mu      sync.Mutex
	next    uint64
	last    uint64
	chunk   uint64
	drained bool
	hit     types.Hit
}

func newFrontier(first, last, chunk uint64) *frontier {
	if chunk == 0 {
		chunk = 1
	}
	return &frontier{next: first, last: last, chunk: chunk, drained: first > last}
}

// claim returns the next inclusive range to scan.
func (f *frontier) claim() (from, to uint64, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.drained || (f.hit.Found && f.next > f.hit.Nonce) {
		return 0, 0, false
	}
	from = f.next
	to = from + f.chunk - 1
	if to < from || to >= f.last {
		to = f.last
		f.drained = true
	} else {
		f.next = to + 1
	}
	return from, to, true
}

// report records hit if it is lower than the current best.
func (f *frontier) report(hit types.Hit) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hit.Found || hit.Nonce < f.hit.Nonce {
		f.hit = hit
	}
}

func (f *frontier) best() types.Hit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hit
}
