package useragent

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// Default is the browser identity the service presents when fetching
// tour-guide pages. Kept fixed so upstream pages see a stable client.
var Default = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/53.36",
}

// Pool holds one or more User-Agent strings. With a single entry it acts
// as a fixed identity; with more it rotates round-robin.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a new User-Agent pool. If the provided slice is empty,
// it falls back to Default.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = Default
	}
	// Copy to avoid external mutation
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{
		uas: copied,
	}
}

// Next returns the next User-Agent in round-robin order. It is safe for
// concurrent use.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a random User-Agent from the pool using crypto/rand.
// It is safe for concurrent use.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		// Fall back to round-robin if crypto/rand fails
		return p.Next()
	}
	return p.uas[n.Int64()]
}

// All returns a copy of the User-Agents currently in the pool.
func (p *Pool) All() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
