package schema

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrClassNotCached = errors.New("class not cached")

// Cache 以类名为键的类结构缓存，只增不删
//
// 缓存的内容在整个会话内复用，服务端结构变更不会自动反映，需要显式调用 Replace。
type Cache struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

func NewCache() *Cache {
	return &Cache{classes: map[string]*Class{}}
}

func (c *Cache) Get(name string) (*Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	class, ok := c.classes[name]
	return class, ok
}

// MustGet 未缓存时返回 ErrClassNotCached
func (c *Cache) MustGet(name string) (*Class, error) {
	if class, ok := c.Get(name); ok {
		return class, nil
	}
	return nil, errors.Wrap(ErrClassNotCached, name)
}

// Add 仅在不存在时写入，返回缓存中实际保存的类结构
func (c *Cache) Add(class *Class) *Class {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.classes[class.Name]; ok {
		return existing
	}
	c.classes[class.Name] = class
	return class
}

// Replace 覆盖写入
func (c *Cache) Replace(class *Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[class.Name] = class
}

// Lookup 返回 names 中已缓存的类结构，保持 names 的顺序，未缓存的跳过
func (c *Cache) Lookup(names ...string) []*Class {
	c.mu.RLock()
	defer c.mu.RUnlock()
	classes := make([]*Class, 0, len(names))
	for _, name := range names {
		if class, ok := c.classes[name]; ok {
			classes = append(classes, class)
		}
	}
	return classes
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.classes)
}
