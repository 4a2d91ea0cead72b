package sandbox

import (
	"container/list"
	"sync"

	"github.com/dop251/goja"
)

// programCache is a thread-safe LRU cache of compiled goja programs, a
// direct adaptation of the teacher's ConditionCache
// (internal/application/engine/condition_cache.go) for a JS VM instead of
// expr-lang: goja.Program is plain bytecode with no bound runtime, so one
// compiled program can be replayed against a fresh goja.Runtime on every
// call — exactly what repeated forEach iterations need.
type programCache struct {
	capacity int
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
}

type cacheEntry struct {
	source  string
	program *goja.Program
}

func newProgramCache(capacity int) *programCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &programCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *programCache) compile(source string) (*goja.Program, error) {
	c.mu.Lock()
	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
		prog := el.Value.(*cacheEntry).program
		c.mu.Unlock()
		return prog, nil
	}
	c.mu.Unlock()

	prog, err := goja.Compile("<expr>", source, false)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).program, nil
	}
	el := c.order.PushFront(&cacheEntry{source: source, program: prog})
	c.entries[source] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).source)
		}
	}
	return prog, nil
}

func (c *programCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

var defaultCache = newProgramCache(256)
