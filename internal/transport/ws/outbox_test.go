package ws

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"claimviz.ai/internal/protocol"
	"claimviz.ai/internal/sim/element"
	"claimviz.ai/internal/sim/geom"
)

func TestOutboxSpawnAndDestroy(t *testing.T) {
	o := NewOutbox()
	spec := element.Spec{Kind: element.KindLine, From: geom.V(1, 2, 3), To: geom.V(4, 2, 3), Style: element.Style{Material: "GLASS", Scale: 0.2}}
	if _, err := o.Materialize("alice", spec); !errors.Is(err, ErrViewerGone) {
		t.Fatalf("expected ErrViewerGone, got %v", err)
	}

	out := make(chan []byte, 4)
	if !o.Register("alice", out) {
		t.Fatalf("register")
	}
	if o.Register("alice", make(chan []byte, 1)) {
		t.Fatalf("second connection for the same viewer must be refused")
	}
	h, err := o.Materialize("alice", spec)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if h.ID != math.MinInt32 {
		t.Fatalf("first id should wrap to MinInt32, got %d", h.ID)
	}
	var spawn protocol.ElementSpawnMsg
	if err := json.Unmarshal(<-out, &spawn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if spawn.Type != protocol.TypeElementSpawn || spawn.EntityID != h.ID || spawn.UID != h.UID.String() ||
		spawn.Kind != "LINE" || spawn.To != [3]int{4, 2, 3} || spawn.Material != "GLASS" {
		t.Fatalf("spawn: %+v", spawn)
	}

	o.Release("alice", []element.Handle{h})
	var destroy protocol.ElementDestroyMsg
	if err := json.Unmarshal(<-out, &destroy); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if destroy.Type != protocol.TypeElementDestroy || len(destroy.EntityIDs) != 1 || destroy.EntityIDs[0] != h.ID {
		t.Fatalf("destroy: %+v", destroy)
	}

	o.Release("alice", nil)
	if len(out) != 0 {
		t.Fatalf("empty release must not send")
	}
}

func TestOutboxQueueFull(t *testing.T) {
	o := NewOutbox()
	out := make(chan []byte, 1)
	o.Register("alice", out)
	spec := element.Spec{Kind: element.KindBlock, From: geom.V(0, 0, 0)}
	if _, err := o.Materialize("alice", spec); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := o.Materialize("alice", spec); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	o.Release("alice", []element.Handle{{ID: 1}})

	// Refused spawns must not consume entity ids.
	<-out
	h, err := o.Materialize("alice", spec)
	if err != nil {
		t.Fatalf("after drain: %v", err)
	}
	if h.ID != math.MinInt32+1 {
		t.Fatalf("refused spawns burned ids: got %d", h.ID)
	}
}

func TestOutboxUnregisterOnlyOwnQueue(t *testing.T) {
	o := NewOutbox()
	a := make(chan []byte, 1)
	o.Register("alice", a)
	o.Unregister("alice", make(chan []byte))
	if _, err := o.Materialize("alice", element.Spec{Kind: element.KindBlock}); err != nil {
		t.Fatalf("stale unregister removed the live queue: %v", err)
	}
	o.Unregister("alice", a)
	if _, err := o.Materialize("alice", element.Spec{Kind: element.KindBlock}); !errors.Is(err, ErrViewerGone) {
		t.Fatalf("expected ErrViewerGone, got %v", err)
	}
}
