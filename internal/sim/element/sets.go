package element

import (
	"claimviz.ai/internal/sim/cull"
	"claimviz.ai/internal/sim/geom"
)

// CoordSet keeps one element per coordinate in insertion order. The first
// element added at a coordinate wins; later ones are dropped.
type CoordSet struct {
	order []*Element
	byPos map[geom.Vec3i]*Element
}

func NewCoordSet() *CoordSet {
	return &CoordSet{byPos: make(map[geom.Vec3i]*Element, 32)}
}

func (s *CoordSet) Add(e *Element) bool {
	pos := e.Coordinate()
	if _, ok := s.byPos[pos]; ok {
		return false
	}
	s.byPos[pos] = e
	s.order = append(s.order, e)
	return true
}

func (s *CoordSet) At(pos geom.Vec3i) *Element { return s.byPos[pos] }
func (s *CoordSet) Len() int                   { return len(s.order) }

// Elements returns the elements in insertion order. The slice is shared.
func (s *CoordSet) Elements() []*Element { return s.order }

func (s *CoordSet) ByHandleID(id int32) *Element {
	for _, e := range s.order {
		if h, ok := e.Handle(); ok && h.ID == id {
			return e
		}
	}
	return nil
}

// LineSet collects line elements for one boundary, dropping exact repeats,
// then culls segments contained in another collinear segment.
type LineSet struct {
	order   []*Element
	entries []cull.Entry
	seen    map[Key]struct{}
}

func NewLineSet() *LineSet {
	return &LineSet{seen: make(map[Key]struct{}, 32)}
}

func (s *LineSet) Add(e *Element) bool {
	k := e.Key()
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	s.order = append(s.order, e)
	spec := e.Spec()
	s.entries = append(s.entries, cull.EntryOf(spec.From, spec.To))
	return true
}

func (s *LineSet) Len() int { return len(s.order) }

// Culled returns the elements that survive line culling, in insertion order.
func (s *LineSet) Culled() []*Element {
	live := cull.Cull(s.entries)
	out := make([]*Element, 0, len(s.order))
	for i, e := range s.order {
		if live[i] {
			out = append(out, e)
		}
	}
	return out
}

// Partition keeps a separate element list per key so one group can be erased
// without touching the others.
type Partition[K comparable] struct {
	keys   []K
	groups map[K][]*Element
}

func NewPartition[K comparable]() *Partition[K] {
	return &Partition[K]{groups: map[K][]*Element{}}
}

// Put replaces the group for k.
func (p *Partition[K]) Put(k K, elems []*Element) {
	if _, ok := p.groups[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.groups[k] = elems
}

func (p *Partition[K]) Get(k K) []*Element { return p.groups[k] }

func (p *Partition[K]) Len() int { return len(p.keys) }

// All returns every element, grouped in key insertion order.
func (p *Partition[K]) All() []*Element {
	var out []*Element
	for _, k := range p.keys {
		out = append(out, p.groups[k]...)
	}
	return out
}

// Erase releases and forgets the group for k.
func (p *Partition[K]) Erase(res Resources, viewer string, k K) {
	elems, ok := p.groups[k]
	if !ok {
		return
	}
	delete(p.groups, k)
	for i, key := range p.keys {
		if key == k {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	EraseAll(res, viewer, elems)
}
