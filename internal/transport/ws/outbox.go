package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"

	"claimviz.ai/internal/protocol"
	"claimviz.ai/internal/sim/element"
)

var (
	ErrViewerGone = errors.New("viewer not connected")
	ErrQueueFull  = errors.New("viewer queue full")
)

// Outbox turns element draws into ELEMENT_SPAWN / ELEMENT_DESTROY messages on
// each viewer's outbound queue. Materialize and Release run on the host loop;
// Register and Unregister run on connection goroutines.
type Outbox struct {
	ids *element.IDAllocator

	mu      sync.Mutex
	viewers map[string]chan []byte
}

func NewOutbox() *Outbox {
	return &Outbox{ids: element.NewIDAllocator(), viewers: map[string]chan []byte{}}
}

// Register attaches a viewer's queue. It fails if the viewer is already
// connected.
func (o *Outbox) Register(viewer string, out chan []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.viewers[viewer]; ok {
		return false
	}
	o.viewers[viewer] = out
	return true
}

// Unregister detaches out if it is still the viewer's queue.
func (o *Outbox) Unregister(viewer string, out chan []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.viewers[viewer] == out {
		delete(o.viewers, viewer)
	}
}

// Materialize draws s for viewer. An entity id is only taken once the
// viewer's queue is known to have room, so refused spawns leave the id
// sequence untouched.
func (o *Outbox) Materialize(viewer string, s element.Spec) (element.Handle, error) {
	ch, err := o.queue(viewer)
	if err != nil {
		return element.Handle{}, err
	}
	h := element.Handle{ID: o.ids.Next(), UID: uuid.New()}
	b, err := json.Marshal(protocol.ElementSpawnMsg{
		Type:            protocol.TypeElementSpawn,
		ProtocolVersion: protocol.Version,
		EntityID:        h.ID,
		UID:             h.UID.String(),
		Kind:            string(s.Kind),
		From:            s.From.ToArray(),
		To:              s.To.ToArray(),
		Material:        s.Style.Material,
		Color:           s.Style.Color,
		Scale:           s.Style.Scale,
		Team:            s.Style.Team,
	})
	if err != nil {
		return element.Handle{}, err
	}
	select {
	case ch <- b:
		return h, nil
	default:
		// Lost the last slot to a connection-side reply.
		return element.Handle{}, ErrQueueFull
	}
}

func (o *Outbox) Release(viewer string, hs []element.Handle) {
	if len(hs) == 0 {
		return
	}
	ids := make([]int32, len(hs))
	for i, h := range hs {
		ids[i] = h.ID
	}
	b, err := json.Marshal(protocol.ElementDestroyMsg{
		Type:            protocol.TypeElementDestroy,
		ProtocolVersion: protocol.Version,
		EntityIDs:       ids,
	})
	if err != nil {
		return
	}
	_ = o.send(viewer, b)
}

// queue returns the viewer's outbound queue if it is connected and has room.
func (o *Outbox) queue(viewer string) (chan []byte, error) {
	o.mu.Lock()
	ch, ok := o.viewers[viewer]
	o.mu.Unlock()
	if !ok {
		return nil, ErrViewerGone
	}
	if len(ch) >= cap(ch) {
		return nil, ErrQueueFull
	}
	return ch, nil
}

func (o *Outbox) send(viewer string, b []byte) error {
	ch, err := o.queue(viewer)
	if err != nil {
		return err
	}
	select {
	case ch <- b:
		return nil
	default:
		return ErrQueueFull
	}
}
