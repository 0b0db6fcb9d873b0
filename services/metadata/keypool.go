package metadata

import (
	"strings"
	"sync"
)

// KeyPool holds the ordered TMDB API keys and the process-wide rotation cursor.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyPool builds a pool from the given keys, dropping blanks and repeats.
func NewKeyPool(keys []string) *KeyPool {
	p := &KeyPool{}
	p.Replace(keys)
	return p
}

// Replace swaps the key list and resets the cursor to the first key.
func (p *KeyPool) Replace(keys []string) {
	cleaned := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		cleaned = append(cleaned, k)
	}

	p.mu.Lock()
	p.keys = cleaned
	p.cursor = 0
	p.mu.Unlock()
}

func (p *KeyPool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Cursor returns the index of the key the next request will start with.
func (p *KeyPool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// pick returns the key at the cursor, or the next one after it that is not in
// tried. ok is false once every key has been tried.
func (p *KeyPool) pick(tried map[int]bool) (idx int, key string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.keys)
	for i := 0; i < n; i++ {
		idx = (p.cursor + i) % n
		if !tried[idx] {
			return idx, p.keys[idx], true
		}
	}
	return 0, "", false
}

// Advance moves the cursor past the key at index from. It is a no-op when a
// concurrent request already rotated away from that key.
func (p *KeyPool) Advance(from int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 || p.cursor != from {
		return
	}
	p.cursor = (from + 1) % len(p.keys)
}
