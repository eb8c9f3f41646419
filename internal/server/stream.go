package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/danmaku/internal/stage"
)

// wsMsg is a control frame sent by a WebSocket client. Frames that are
// not JSON objects are submitted as message content.
type wsMsg struct {
	Type    string  `json:"type"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Hidden  bool    `json:"hidden"`
	Action  string  `json:"action"`
	Content string  `json:"content"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		// same-origin only
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	},
}

// snapshotEvents returns the events that bring a fresh client up to date.
func (s *Server) snapshotEvents() []stage.Event {
	now := s.display.Now()
	var out []stage.Event
	for _, node := range s.display.Snapshot() {
		out = append(out, node.Events(now)...)
	}
	return out
}

// handleSSE streams display events via Server-Sent Events.
//
// The handler uses write deadlines so that a blocked write to a slow or
// disconnected client cannot keep it from noticing shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// write deadlines may not be supported by some ResponseWriter impls
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the snapshot so no event falls between the two
	ch := s.display.Subscribe()
	defer s.display.Unsubscribe(ch)

	for _, ev := range s.snapshotEvents() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}
	// flush headers even when there is nothing to replay
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}

// handleWS streams display events over a WebSocket and accepts messages
// and control frames from the client.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an error status
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := s.display.Subscribe()
	defer s.display.Unsubscribe(ch)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		s.readWS(ctx, conn)
	}()

	write := func(ev stage.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		return conn.WriteJSON(ev)
	}

	// closing the connection unblocks the reader
	finish := func() {
		cancel()
		_ = conn.Close()
		<-readDone
	}

	for _, ev := range s.snapshotEvents() {
		if err := write(ev); err != nil {
			finish()
			return
		}
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				finish()
				return
			}
			if err := write(ev); err != nil {
				finish()
				return
			}

		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			finish()
			return
		}
	}
}

// readWS handles inbound frames until the connection fails or ctx ends.
func (s *Server) readWS(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxBodySize)
	for {
		if ctx.Err() != nil {
			return
		}
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage || len(data) == 0 {
			continue
		}

		if data[0] != '{' {
			s.saveFromWS(ctx, string(data))
			continue
		}

		var m wsMsg
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Debug("invalid websocket frame", "error", err)
			continue
		}
		switch strings.ToLower(strings.TrimSpace(m.Type)) {
		case "message":
			s.saveFromWS(ctx, m.Content)
		case "resize":
			if m.Width > 0 && m.Height > 0 {
				s.resize(m.Width, m.Height)
			}
		case "visibility":
			s.engine.SetVisible(!m.Hidden)
		case "control":
			if !s.control(m.Action) {
				s.logger.Debug("unknown websocket control action", "action", m.Action)
			}
		}
	}
}

func (s *Server) saveFromWS(ctx context.Context, content string) {
	if _, err := s.store.Save(ctx, content); err != nil {
		s.logger.Debug("websocket message rejected", "error", err)
	}
}
