package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"claimviz.ai/internal/protocol"
	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/host"
	"claimviz.ai/internal/sim/viz"
)

const outQueue = 4096

type Server struct {
	host      *host.Host
	outbox    *Outbox
	validator *protocol.Validator
	log       logrus.FieldLogger

	upgrader websocket.Upgrader
}

func NewServer(h *host.Host, outbox *Outbox, v *protocol.Validator, logger logrus.FieldLogger) *Server {
	s := &Server{
		host:      h,
		outbox:    outbox,
		validator: v,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		viewerID, sessionID, out := s.handshake(conn)
		if viewerID == "" {
			return
		}
		log := s.log.WithFields(logrus.Fields{"viewer": viewerID, "session": sessionID})
		log.Info("viewer connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.route(ctx, viewerID, msg, out)
		}

		// Cleanup.
		s.outbox.Unregister(viewerID, out)
		s.host.Leave() <- host.LeaveRequest{ViewerID: viewerID, SessionID: sessionID}
		log.Info("viewer disconnected")
	}
}

func (s *Server) route(ctx context.Context, viewerID string, msg []byte, out chan []byte) {
	base, err := s.validator.Validate(msg)
	if err != nil {
		reply(out, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
		return
	}
	if base.ProtocolVersion != protocol.Version {
		reply(out, protocol.NewError(protocol.ErrProtoBadRequest, "bad protocol_version"))
		return
	}
	switch base.Type {
	case protocol.TypeMove:
		var m protocol.MoveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			reply(out, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
			return
		}
		s.host.Move() <- host.MoveRequest{ViewerID: viewerID, World: m.WorldID, Pos: geom.V(m.Pos[0], m.Pos[1], m.Pos[2])}
	case protocol.TypeVisualize:
		var m protocol.VisualizeMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			reply(out, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
			return
		}
		resp := make(chan host.VisualizeResponse, 1)
		s.host.Visualize() <- host.VisualizeRequest{ViewerID: viewerID, Msg: m, Resp: resp}
		select {
		case r := <-resp:
			if r.Err != nil {
				reply(out, *r.Err)
			}
		case <-ctx.Done():
		}
	case protocol.TypeRevert:
		s.host.Revert() <- viewerID
	case protocol.TypeHello:
		reply(out, protocol.NewError(protocol.ErrBadRequest, "already joined"))
	}
}

func (s *Server) handshake(conn *websocket.Conn) (viewerID, sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", "", nil
	}

	base, err := s.validator.Validate(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", "", nil
	}

	id := strings.TrimSpace(hello.ViewerID)
	out = make(chan []byte, outQueue)
	if !s.outbox.Register(id, out) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "viewer already connected"), time.Now().Add(time.Second))
		return "", "", nil
	}

	respCh := make(chan host.JoinResponse, 1)
	s.host.Join() <- host.JoinRequest{
		Viewer:       viz.Viewer{ID: id, World: hello.WorldID, Pos: geom.V(hello.Pos[0], hello.Pos[1], hello.Pos[2])},
		ViewDistance: hello.ViewDistance,
		Resp:         respCh,
	}
	resp := <-respCh
	if resp.Err != nil {
		_ = writeJSON(conn, *resp.Err)
		s.outbox.Unregister(id, out)
		return "", "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.outbox.Unregister(id, out)
		s.host.Leave() <- host.LeaveRequest{ViewerID: id, SessionID: resp.Welcome.SessionID}
		return "", "", nil
	}
	return id, resp.Welcome.SessionID, out
}

// reply queues a server message without blocking the reader.
func reply(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
