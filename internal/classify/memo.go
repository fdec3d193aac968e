package classify

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// memoMaxKeyLen bounds the length of strings worth memoizing. Long values
// (embedded JSON blobs, free text) rarely repeat and would evict useful
// entries.
const memoMaxKeyLen = 128

// Memo wraps the classifier with a bounded LRU cache over string values.
//
// Real exports repeat the same enum-ish strings across millions of records;
// caching skips the regex battery for values already seen. Non-string values
// bypass the cache entirely, so a Memo classifies identically to Value.
type Memo struct {
	cache *lru.Cache[string, Type]
}

// NewMemo returns a memoizing classifier holding at most size string entries.
// size <= 0 selects a default of 4096.
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = 4096
	}
	// lru.New only fails for non-positive sizes, which we rule out above.
	c, err := lru.New[string, Type](size)
	if err != nil {
		panic(err)
	}
	return &Memo{cache: c}
}

// Value classifies v, consulting the cache for repeat string values.
func (m *Memo) Value(v any) Type {
	s, ok := v.(string)
	if !ok || len(s) > memoMaxKeyLen {
		return Value(v)
	}
	if t, ok := m.cache.Get(s); ok {
		return t
	}
	t := String(s)
	m.cache.Add(s, t)
	return t
}
