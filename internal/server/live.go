package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"connwatch/internal/models"
)

const (
	liveWriteTimeout    = 5 * time.Second
	liveRefreshInterval = 60 * time.Second
	liveListenerBuffer  = 16
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

type liveUpdate struct {
	State models.ConnectivityState `json:"state"`
	Label string                   `json:"label"`
	At    time.Time                `json:"at"`
	Cause string                   `json:"cause,omitempty"`
}

func (s *Server) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveLiveConnection(conn)
}

// serveLiveConnection pushes the current state once, then one message per
// recorded transition. A slow ticker re-sends the current state so idle
// connections stay warm and reconnecting clients converge.
func (s *Server) serveLiveConnection(conn *websocket.Conn) {
	defer conn.Close()

	updates, remove := s.source.AddListener(liveListenerBuffer)
	defer remove()

	if err := writeLivePayload(conn, s.currentUpdate()); err != nil {
		return
	}

	ticker := time.NewTicker(liveRefreshInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case t := <-updates:
			if err := writeLivePayload(conn, liveUpdate{
				State: t.State.Normalize(),
				Label: t.State.Label(),
				At:    t.At,
				Cause: t.Cause,
			}); err != nil {
				return
			}
		case <-ticker.C:
			if err := writeLivePayload(conn, s.currentUpdate()); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) currentUpdate() liveUpdate {
	state := s.source.Current()
	return liveUpdate{
		State: state,
		Label: state.Label(),
		At:    time.Now().UTC(),
	}
}

func writeLivePayload(conn *websocket.Conn, payload liveUpdate) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(payload)
}
