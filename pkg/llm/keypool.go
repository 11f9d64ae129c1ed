package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrAborted is returned by KeyPool.Try when the user cancels the operation
// between attempts.
var ErrAborted = errors.New("operation aborted")

// KeyPool rotates through a set of API keys across requests. The cursor
// survives individual calls, so consecutive operations spread load over the
// pool instead of hammering the first key.
type KeyPool struct {
	mu      sync.Mutex
	keys    []string
	cursor  int
	aborted bool
}

// NewKeyPool parses a comma-separated key list, dropping empty entries.
func NewKeyPool(commaSeparated string) *KeyPool {
	var keys []string
	for _, k := range strings.Split(commaSeparated, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return &KeyPool{keys: keys}
}

// Len returns the number of keys in the pool.
func (p *KeyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Abort flags the pool so in-flight Try loops stop before their next attempt.
func (p *KeyPool) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aborted = true
}

// Reset clears the abort flag for the next operation.
func (p *KeyPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aborted = false
}

// Aborted reports whether Abort was called since the last Reset.
func (p *KeyPool) Aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}

func (p *KeyPool) next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", false
	}
	key := p.keys[p.cursor%len(p.keys)]
	p.cursor++
	return key, true
}

// Try runs fn with each key in rotation until one succeeds, making at most
// one attempt per key. The abort flag and context are checked between
// attempts; a set flag yields ErrAborted, everything failing yields the last
// error.
func (p *KeyPool) Try(ctx context.Context, fn func(ctx context.Context, key string) error) error {
	n := p.Len()
	if n == 0 {
		return fmt.Errorf("no API keys configured")
	}

	var lastErr error
	for i := 0; i < n; i++ {
		if p.Aborted() {
			return ErrAborted
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		key, ok := p.next()
		if !ok {
			break
		}
		if err := fn(ctx, key); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if p.Aborted() {
		return ErrAborted
	}
	return fmt.Errorf("all %d key attempts failed: %w", n, lastErr)
}
