package binder

import (
	"sort"
	"sync"
	"sync/atomic"
)

// classRegistry maps native class pointers to their Go records. Writers
// (Define) serialize on mu and publish a fresh map; readers load the current
// map without locking so dispatch never contends across objects.
type classRegistry struct {
	mu      sync.Mutex
	current atomic.Pointer[map[ClassPtr]*Class]
}

var classes classRegistry

func (r *classRegistry) load() map[ClassPtr]*Class {
	if m := r.current.Load(); m != nil {
		return *m
	}
	return nil
}

func (r *classRegistry) add(c *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.load()
	next := make(map[ClassPtr]*Class, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[c.ptr] = c
	r.current.Store(&next)
}

func (r *classRegistry) lookup(p ClassPtr) (*Class, bool) {
	c, ok := r.load()[p]
	return c, ok
}

func (r *classRegistry) byDescriptor(descriptor string) []*Class {
	var out []*Class
	for _, c := range r.load() {
		if c.descriptor == descriptor {
			out = append(out, c)
		}
	}
	return out
}

// LookupClass returns the class defined in this process for p, if any.
func LookupClass(p ClassPtr) (*Class, bool) { return classes.lookup(p) }

// Classes returns every class defined in this process, ordered by
// descriptor then pointer.
func Classes() []*Class {
	m := classes.load()
	out := make([]*Class, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].descriptor != out[j].descriptor {
			return out[i].descriptor < out[j].descriptor
		}
		return out[i].ptr < out[j].ptr
	})
	return out
}

// handleTable hands out integer handles for Go values that must travel
// through native void* slots. Zero is never issued.
type handleTable struct {
	next   atomic.Uintptr
	values sync.Map // uintptr -> any
}

var handles handleTable

func (t *handleTable) register(v any) uintptr {
	id := t.next.Add(1)
	t.values.Store(id, v)
	return id
}

func (t *handleTable) lookup(id uintptr) (any, bool) {
	if id == 0 {
		return nil, false
	}
	return t.values.Load(id)
}

func (t *handleTable) unregister(id uintptr) {
	t.values.Delete(id)
}

func (t *handleTable) count() int {
	n := 0
	t.values.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
