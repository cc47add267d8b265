// Command bot is a scripted viewer: it joins, optionally asks for a claim
// outline, wanders, and logs the elements the server sends it.
package main

import (
	"encoding/json"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"claimviz.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "viewer id")
		worldID  = flag.String("world", "", "world id (default: server default)")
		claimID  = flag.String("claim", "", "claim to visualize after joining")
		nearby   = flag.Int("nearby", 0, "visualize claims within this radius after joining")
		provider = flag.String("provider", "", "visualization provider")
		wander   = flag.Duration("wander", 0, "move to a random nearby spot this often (0 = stay)")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logger.WithField("viewer", *name)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.WithError(err).Fatal("dial")
	}
	defer conn.Close()

	v := newView()
	v.pos = [3]int{0, 80, 0}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ViewerID:        *name,
		WorldID:         *worldID,
		Pos:             v.pos,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 4096},
	}
	if err := conn.WriteJSON(hello); err != nil {
		log.WithError(err).Fatal("send HELLO")
	}

	msgs := make(chan []byte, 64)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var moves <-chan time.Time
	if *wander > 0 {
		t := time.NewTicker(*wander)
		defer t.Stop()
		moves = t.C
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-stop:
			return
		case <-moves:
			v.pos[0] += r.Intn(31) - 15
			v.pos[2] += r.Intn(31) - 15
			_ = conn.WriteJSON(protocol.MoveMsg{Type: protocol.TypeMove, ProtocolVersion: protocol.Version, Pos: v.pos})
		case msg, ok := <-msgs:
			if !ok {
				log.Info("disconnected")
				return
			}
			typ, err := v.handle(msg)
			if err != nil {
				continue
			}
			switch typ {
			case protocol.TypeWelcome:
				log.WithFields(logrus.Fields{"session": v.welcome.SessionID, "world": v.welcome.WorldID, "provider": v.welcome.DefaultProvider}).Info("WELCOME")
				if *claimID != "" || *nearby > 0 {
					req := protocol.VisualizeMsg{
						Type:            protocol.TypeVisualize,
						ProtocolVersion: protocol.Version,
						Provider:        *provider,
						ClaimID:         *claimID,
					}
					if *claimID == "" {
						req.NearbyRadius = *nearby
					}
					_ = conn.WriteJSON(req)
				}
			case protocol.TypeError:
				log.WithFields(logrus.Fields{"code": v.lastErr.Code}).Warn(v.lastErr.Message)
			case protocol.TypeElementDestroy:
				log.WithField("live", len(v.live)).Info("elements removed")
			case protocol.TypeElementSpawn:
				log.WithField("live", len(v.live)).Debug("element spawned")
			}
		}
	}
}

// view tracks what the server has shown this viewer.
type view struct {
	pos     [3]int
	welcome protocol.WelcomeMsg
	lastErr protocol.ErrorMsg
	live    map[int32]protocol.ElementSpawnMsg
	spawned int
}

func newView() *view {
	return &view{live: map[int32]protocol.ElementSpawnMsg{}}
}

func (v *view) handle(msg []byte) (string, error) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return "", err
	}
	switch base.Type {
	case protocol.TypeWelcome:
		err = json.Unmarshal(msg, &v.welcome)
	case protocol.TypeError:
		err = json.Unmarshal(msg, &v.lastErr)
	case protocol.TypeElementSpawn:
		var s protocol.ElementSpawnMsg
		if err = json.Unmarshal(msg, &s); err == nil {
			v.live[s.EntityID] = s
			v.spawned++
		}
	case protocol.TypeElementDestroy:
		var d protocol.ElementDestroyMsg
		if err = json.Unmarshal(msg, &d); err == nil {
			for _, id := range d.EntityIDs {
				delete(v.live, id)
			}
		}
	}
	return base.Type, err
}
