package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/diogo/waychat/internal/panel"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// latestView is a panel.Renderer that keeps only the newest View. Render
// runs under the controller lock, so it never blocks.
type latestView struct {
	ch chan panel.View
}

func newLatestView() *latestView {
	return &latestView{ch: make(chan panel.View, 1)}
}

func (l *latestView) Render(v panel.View) {
	select {
	case l.ch <- v:
		return
	default:
	}
	// Drop the stale view; every View is a full snapshot
	select {
	case <-l.ch:
	default:
	}
	select {
	case l.ch <- v:
	default:
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	conn, err := upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	views := newLatestView()
	views.Render(sess.ctrl.Render())
	unsubscribe := sess.ctrl.Subscribe(views)
	defer unsubscribe()

	logger := s.logger.With().Str("session", sess.id).Logger()
	logger.Debug().Msg("websocket connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case v := <-views.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(v); err != nil {
				logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			logger.Debug().Msg("websocket closed")
			return
		case <-r.Context().Done():
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(writeWait))
			logger.Debug().Msg("websocket closed by shutdown")
			return
		}
	}
}
