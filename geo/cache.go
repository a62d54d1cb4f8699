package geo

import (
	"context"
	"sync"
)

// Cached memoizes successful lookups. Every event of a venue shares one
// place name, so a run usually needs a single request per venue.
type Cached struct {
	next Locator

	mu   sync.Mutex
	seen map[string]Location
}

func NewCached(next Locator) *Cached {
	return &Cached{next: next, seen: make(map[string]Location)}
}

func (c *Cached) Locate(ctx context.Context, place, region string) (Location, error) {
	key := place + "\x00" + region

	c.mu.Lock()
	loc, ok := c.seen[key]
	c.mu.Unlock()
	if ok {
		return loc, nil
	}

	loc, err := c.next.Locate(ctx, place, region)
	if err != nil {
		return Location{}, err
	}

	c.mu.Lock()
	c.seen[key] = loc
	c.mu.Unlock()
	return loc, nil
}
