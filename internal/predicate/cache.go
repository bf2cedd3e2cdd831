package predicate

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize is the default number of compiled programs retained.
const DefaultCacheSize = 256

// Cache is a bounded LRU of compiled expression programs, keyed by source.
// Safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	lru       *list.List
	maxSize   int
	hitCount  int64
	missCount int64
}

type entry struct {
	expression string
	program    *vm.Program
}

// NewCache returns a Cache holding at most maxSize programs. Non-positive
// sizes select DefaultCacheSize.
func NewCache(maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		items:   make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached program for expression, marking it recently used.
func (c *Cache) Get(expression string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[expression]
	if !ok {
		c.missCount++
		return nil, false
	}
	c.hitCount++
	c.lru.MoveToFront(elem)
	return elem.Value.(*entry).program, true
}

// Put stores program, evicting the least recently used entries over the
// limit.
func (c *Cache) Put(expression string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[expression]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*entry).program = program
		return
	}
	c.items[expression] = c.lru.PushFront(&entry{expression: expression, program: program})
	for c.lru.Len() > c.maxSize {
		back := c.lru.Back()
		delete(c.items, back.Value.(*entry).expression)
		c.lru.Remove(back)
	}
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the current size and the hit and miss counters.
func (c *Cache) Stats() (size int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.hitCount, c.missCount
}

func (c *Cache) String() string {
	size, hits, misses := c.Stats()
	return fmt.Sprintf("predicate.Cache{size=%d, hits=%d, misses=%d}", size, hits, misses)
}
