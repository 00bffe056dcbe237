// internal/httpserver/ws.go
//
// WebSocket push channel for one game session (GET /game/ws).
//
// Server → client messages:
//   {"type":"state","state":{...}}                  on connect and on every change,
//                                                   including a fetch resolving
//   {"type":"result","accepted":bool,"state":{...}} reply to each command
//   {"type":"error","error":"..."}                  malformed command
//
// Client → server commands:
//   {"type":"key","key":"a"|"Backspace"|"Delete"|"Enter"}
//   {"type":"guess","word":"water"}
//   {"type":"length","length":6}
//   {"type":"reset"}
//
// Only the writer goroutine writes data frames. Pings and pongs in either
// direction keep the session from being swept while the socket is open.

package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/wordle/apps/wordgame/internal/game"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsReadLimit  = 1024
)

type wsCommand struct {
	Type   string `json:"type"`
	Key    string `json:"key,omitempty"`
	Word   string `json:"word,omitempty"`
	Length int    `json:"length,omitempty"`
}

type wsMessage struct {
	Type     string         `json:"type"`
	Accepted *bool          `json:"accepted,omitempty"`
	State    *game.Snapshot `json:"state,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts non-browser clients (no Origin), the configured client
// origin and same-host pages.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.ClientOrigin {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	logger := hlog.FromRequest(r).With().Str("gameId", sess.ID).Logger()

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.Debug().Err(err).Msg("ws upgrade failed")
		return
	}
	logger.Info().Msg("ws connected")

	updates, unsubscribe := sess.Subscribe()
	replies := make(chan wsMessage, 8)
	done := make(chan struct{})

	go s.wsWriter(conn, sess, updates, replies, done)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		sess.Touch()
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	conn.SetPingHandler(func(data string) error {
		sess.Touch()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(wsWriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("ws read")
			}
			break
		}
		msg := applyCommand(sess, cmd)
		select {
		case replies <- msg:
		case <-done:
		}
	}

	close(replies)
	unsubscribe()
	<-done
	logger.Info().Msg("ws disconnected")
}

// applyCommand runs one client command against the session.
func applyCommand(sess *game.Session, cmd wsCommand) wsMessage {
	var (
		snap game.Snapshot
		ok   = true
	)
	switch cmd.Type {
	case "key":
		snap, ok = sess.Press(cmd.Key)
	case "guess":
		snap, ok = sess.Guess(cmd.Word)
	case "length":
		snap = sess.ChangeWordLength(cmd.Length)
	case "reset":
		snap = sess.Reset()
	default:
		return wsMessage{Type: "error", Error: "unknown_command"}
	}
	return wsMessage{Type: "result", Accepted: &ok, State: &snap}
}

// wsWriter sends the initial snapshot, then every update, reply and ping
// until the reader stops or the session is closed.
func (s *Server) wsWriter(conn *websocket.Conn, sess *game.Session, updates <-chan game.Snapshot, replies <-chan wsMessage, done chan<- struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()

	write := func(m wsMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(m)
	}

	first := sess.Snapshot()
	if err := write(wsMessage{Type: "state", State: &first}); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				// session closed (swept, replaced or reader gone)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := write(wsMessage{Type: "state", State: &snap}); err != nil {
				return
			}
		case m, ok := <-replies:
			if !ok {
				return
			}
			if err := write(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
