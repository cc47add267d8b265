package viz

import (
	"sort"

	"claimviz.ai/internal/sim/geom"
)

// Session is the per-viewer state: where the viewer is and which
// visualization, if any, is pending or active for them.
type Session struct {
	viewer  Viewer
	pending Visualization
	active  Visualization
}

func (s *Session) Viewer() Viewer         { return s.viewer }
func (s *Session) Active() Visualization  { return s.active }
func (s *Session) Pending() Visualization { return s.pending }

func (s *Session) Move(world string, pos geom.Vec3i) {
	s.viewer.World = world
	s.viewer.Pos = pos
}

// SetActive replaces the active visualization, reverting the previous one
// first. Passing nil just clears it.
func (s *Session) SetActive(v Visualization) {
	if s.active != nil && s.active != v {
		s.active.Revert()
	}
	s.active = v
}

// Sessions owns every connected viewer's session. Host loop only.
type Sessions struct {
	byID map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{byID: map[string]*Session{}}
}

// Join returns the viewer's session, creating it or updating its position.
func (ss *Sessions) Join(v Viewer) *Session {
	if s, ok := ss.byID[v.ID]; ok {
		s.Move(v.World, v.Pos)
		return s
	}
	s := &Session{viewer: v}
	ss.byID[v.ID] = s
	return s
}

func (ss *Sessions) Get(id string) *Session { return ss.byID[id] }

// Leave reverts anything the viewer can see and forgets the session.
func (ss *Sessions) Leave(id string) {
	s, ok := ss.byID[id]
	if !ok {
		return
	}
	s.pending = nil
	s.SetActive(nil)
	delete(ss.byID, id)
}

func (ss *Sessions) IDs() []string {
	out := make([]string, 0, len(ss.byID))
	for id := range ss.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
