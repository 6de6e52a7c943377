package util

import (
	"cmp"
	"slices"
)

// OrderedMap keeps its keys sorted so iteration order is deterministic.
// The zero value is ready to use.
type OrderedMap[K cmp.Ordered, V any] struct {
	keys []K
	m    map[K]V
}

func (c *OrderedMap[K, V]) Set(key K, value V) {
	if c.m == nil {
		c.m = make(map[K]V)
	}
	if _, ok := c.m[key]; !ok {
		if n := len(c.keys); n == 0 || c.keys[n-1] < key {
			c.keys = append(c.keys, key)
		} else {
			i, _ := slices.BinarySearch(c.keys, key)
			c.keys = slices.Insert(c.keys, i, key)
		}
	}
	c.m[key] = value
}

func (c *OrderedMap[K, V]) Get(key K) (value V, ok bool) {
	value, ok = c.m[key]
	return
}

func (c *OrderedMap[K, V]) Has(key K) bool {
	_, ok := c.m[key]
	return ok
}

func (c *OrderedMap[K, V]) Delete(key K) bool {
	if _, ok := c.m[key]; !ok {
		return false
	}
	delete(c.m, key)
	if i, found := slices.BinarySearch(c.keys, key); found {
		c.keys = slices.Delete(c.keys, i, i+1)
	}
	return true
}

func (c *OrderedMap[K, V]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

func (c *OrderedMap[K, V]) Keys() []K {
	return slices.Clone(c.keys)
}

// At returns the i-th entry in key order.
func (c *OrderedMap[K, V]) At(i int) (K, V) {
	k := c.keys[i]
	return k, c.m[k]
}

func (c *OrderedMap[K, V]) Range(f func(K, V) bool) {
	if c == nil {
		return
	}
	for _, k := range c.keys {
		if !f(k, c.m[k]) {
			break
		}
	}
}

func (c *OrderedMap[K, V]) First() (key K, value V, ok bool) {
	if len(c.keys) == 0 {
		return
	}
	key = c.keys[0]
	return key, c.m[key], true
}

func (c *OrderedMap[K, V]) Last() (key K, value V, ok bool) {
	if len(c.keys) == 0 {
		return
	}
	key = c.keys[len(c.keys)-1]
	return key, c.m[key], true
}

// Floor returns the entry with the greatest key <= key.
func (c *OrderedMap[K, V]) Floor(key K) (k K, value V, ok bool) {
	i, found := slices.BinarySearch(c.keys, key)
	if !found {
		i--
	}
	if i < 0 {
		return
	}
	k = c.keys[i]
	return k, c.m[k], true
}

// Ceil returns the entry with the smallest key >= key.
func (c *OrderedMap[K, V]) Ceil(key K) (k K, value V, ok bool) {
	i, _ := slices.BinarySearch(c.keys, key)
	if i >= len(c.keys) {
		return
	}
	k = c.keys[i]
	return k, c.m[k], true
}

// Merge copies every entry of o into c, transforming values with f.
func Merge[K cmp.Ordered, V, W any](c *OrderedMap[K, V], o *OrderedMap[K, W], f func(W) V) {
	o.Range(func(k K, w W) bool {
		c.Set(k, f(w))
		return true
	})
}
