package keys

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Source yields an API credential for an outbound call. Implementations are
// safe for concurrent use. Injected rather than used as a singleton so tests
// can supply a deterministic source.
type Source interface {
	Next() string
}

// RoundRobin cycles through a fixed pool of keys, one per call, spreading
// quota across every provisioned key.
type RoundRobin struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewRoundRobin builds a rotating source from a key pool.
func NewRoundRobin(pool []string) (*RoundRobin, error) {
	var keys []string
	for _, k := range pool {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API keys provided")
	}
	return &RoundRobin{keys: keys}, nil
}

// FromEnv reads a comma-separated key pool from the named environment
// variable.
func FromEnv(name string) (*RoundRobin, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return nil, fmt.Errorf("%s is not set", name)
	}
	rr, err := NewRoundRobin(strings.Split(raw, ","))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rr, nil
}

// Next returns the next key in rotation.
func (r *RoundRobin) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.keys[r.idx]
	r.idx = (r.idx + 1) % len(r.keys)
	return key
}

// Len reports the pool size.
func (r *RoundRobin) Len() int {
	return len(r.keys)
}
