package analysis

import "sort"

// Entry is one counted key.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Counter counts keys and remembers the order they were first seen in.
type Counter struct {
	counts map[string]int
	order  []string
}

func NewCounter(keys ...string) *Counter {
	c := &Counter{counts: make(map[string]int)}
	c.AddAll(keys)
	return c
}

func (c *Counter) Add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *Counter) AddAll(keys []string) {
	for _, k := range keys {
		c.Add(k)
	}
}

func (c *Counter) Count(key string) int { return c.counts[key] }

// Len is the number of distinct keys.
func (c *Counter) Len() int { return len(c.order) }

// Total is the sum of all counts.
func (c *Counter) Total() int {
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

// MostCommon returns the n highest counts; ties keep first-seen order.
// n <= 0 returns every key.
func (c *Counter) MostCommon(n int) []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, Entry{Key: k, Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Sorted returns every key in ascending key order.
func (c *Counter) Sorted() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, Entry{Key: k, Count: c.counts[k]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
