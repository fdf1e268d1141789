package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// vectorCache is a bounded, write-through, in-process cache from vector_id
// to its decoded embedding, avoiding repeated BLOB decode for hot vectors
// across successive searches.
type vectorCache struct {
	c *lru.Cache[string, []float32]
}

func newVectorCache(size int) (*vectorCache, error) {
	if size <= 0 {
		size = 10000
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &vectorCache{c: c}, nil
}

func (v *vectorCache) get(id string) ([]float32, bool) {
	return v.c.Get(id)
}

func (v *vectorCache) put(id string, vec []float32) {
	v.c.Add(id, vec)
}

func (v *vectorCache) remove(id string) {
	v.c.Remove(id)
}
