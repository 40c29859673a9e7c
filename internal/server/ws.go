package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/normanking/empath/internal/pipeline"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsWriteWait  = 10 * time.Second
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-origin requests and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return s.allowedOrigin(r) != ""
}

// handleChat runs one websocket chat session.
// GET /ws/chat?user=U&session=S&persona=P
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	q := r.URL.Query()
	userRef := q.Get("user")
	sessionID := q.Get("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	defaultPersona := q.Get("persona")

	conn.SetReadLimit(int64(s.cfg.MaxInputBytes) + 4096)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	log.Debug().Str("session", sessionID).Str("user", userRef).Msg("chat connected")

	if err := s.send(conn, WSReply{Type: WSSession, SessionID: sessionID}); err != nil {
		return
	}

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !isDecodeError(err) && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session", sessionID).Msg("chat read failed")
			}
			if isDecodeError(err) {
				if s.send(conn, WSReply{Type: WSError, SessionID: sessionID, Error: "invalid message"}) == nil {
					continue
				}
			}
			return
		}

		var reply WSReply
		switch msg.Type {
		case WSTurn, "message", "":
			if len(msg.Text) > s.cfg.MaxInputBytes {
				reply = WSReply{Type: WSError, SessionID: sessionID, Error: ErrTooLarge.Message}
				break
			}
			name := msg.Persona
			if name == "" {
				name = defaultPersona
			}
			env := s.pipeline.Process(r.Context(), userRef, msg.Text, pipeline.TurnContext{
				Mood:        msg.Mood,
				EmotionData: msg.EmotionData,
				MemoryHints: msg.MemoryHints,
				SessionID:   sessionID,
				Persona:     name,
			})
			reply = WSReply{Type: WSEnvelope, SessionID: sessionID, Envelope: env}
		case WSPing:
			reply = WSReply{Type: WSPong, SessionID: sessionID}
		default:
			reply = WSReply{Type: WSError, SessionID: sessionID, Error: "unknown message type " + string(msg.Type)}
		}

		if err := s.send(conn, reply); err != nil {
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, reply WSReply) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(reply); err != nil {
		log.Debug().Err(err).Str("session", reply.SessionID).Msg("chat write failed")
		return err
	}
	return nil
}

func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// isDecodeError reports a malformed frame; the connection stays usable.
func isDecodeError(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ)
}
