// Package element tracks the client-visible markers drawn for a viewer. An
// Element owns at most one external resource, created on Draw and released on
// Erase; both calls are idempotent.
package element

import (
	"github.com/google/uuid"

	"claimviz.ai/internal/sim/geom"
)

type Kind string

const (
	// KindBlock is a client-side block change at From.
	KindBlock Kind = "BLOCK"
	// KindEntity is a glowing marker entity at From.
	KindEntity Kind = "ENTITY"
	// KindLine is a stretched display entity spanning From to To.
	KindLine Kind = "LINE"
)

// Style is an opaque presentation token; the core never interprets it.
type Style struct {
	Material string  `json:"material,omitempty"`
	Color    uint32  `json:"color,omitempty"`
	Scale    float32 `json:"scale,omitempty"`
	Team     string  `json:"team,omitempty"`
}

type Spec struct {
	Kind  Kind
	From  geom.Vec3i
	To    geom.Vec3i
	Style Style
}

// Handle identifies a materialized resource on the viewer's client.
type Handle struct {
	ID  int32
	UID uuid.UUID
}

// Resources is the collaborator that actually shows and hides elements.
type Resources interface {
	Materialize(viewer string, s Spec) (Handle, error)
	// Release is best effort; unreachable viewers are ignored.
	Release(viewer string, hs []Handle)
}

// Key is the identity of an element: the same viewer asking for the same
// coordinates twice gets the same key regardless of style or handle.
type Key struct {
	Viewer string
	Kind   Kind
	From   geom.Vec3i
	To     geom.Vec3i
}

type Element struct {
	viewer string
	spec   Spec

	drawn  bool
	handle Handle
}

func New(viewer string, s Spec) *Element {
	if s.Kind != KindLine {
		s.To = s.From
	}
	return &Element{viewer: viewer, spec: s}
}

func (e *Element) Viewer() string         { return e.viewer }
func (e *Element) Spec() Spec             { return e.spec }
func (e *Element) Coordinate() geom.Vec3i { return e.spec.From }
func (e *Element) Drawn() bool            { return e.drawn }

func (e *Element) Key() Key {
	return Key{Viewer: e.viewer, Kind: e.spec.Kind, From: e.spec.From, To: e.spec.To}
}

// Handle returns the resource handle; ok is false unless the element is drawn.
func (e *Element) Handle() (Handle, bool) {
	return e.handle, e.drawn
}

// Draw materializes the element once. A failed draw leaves it undrawn.
func (e *Element) Draw(res Resources) error {
	if e.drawn {
		return nil
	}
	h, err := res.Materialize(e.viewer, e.spec)
	if err != nil {
		return err
	}
	e.handle = h
	e.drawn = true
	return nil
}

// Erase releases the element's resource. Erasing an undrawn element is a no-op.
func (e *Element) Erase(res Resources) {
	if !e.drawn {
		return
	}
	res.Release(e.viewer, []Handle{e.handle})
	e.reset()
}

func (e *Element) reset() {
	e.handle = Handle{}
	e.drawn = false
}

// EraseAll releases every drawn element of one viewer in a single batch.
func EraseAll(res Resources, viewer string, elems []*Element) {
	var hs []Handle
	for _, e := range elems {
		if e == nil || !e.drawn {
			continue
		}
		hs = append(hs, e.handle)
		e.reset()
	}
	if len(hs) > 0 {
		res.Release(viewer, hs)
	}
}

// DrawAll draws elems in order and stops at the first failure.
func DrawAll(res Resources, elems []*Element) error {
	for _, e := range elems {
		if err := e.Draw(res); err != nil {
			return err
		}
	}
	return nil
}
