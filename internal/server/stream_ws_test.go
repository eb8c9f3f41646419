package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/stage"
)

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// eventually polls cond until it holds or fails the test.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHandleWS_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"no origin", "", false},
		{"same origin", "http://HOST", false},
		{"host as prefix of another domain", "http://HOST.evil.example", true},
		{"other host", "http://evil.example", true},
		{"malformed", "://", true},
	}

	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)
	host := strings.TrimPrefix(ts.URL, "http://")
	wsURL := "ws://" + host + "/api/ws"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", strings.ReplaceAll(tt.origin, "HOST", host))
			}

			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if conn != nil {
				_ = conn.Close()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dial() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && (resp == nil || resp.StatusCode != http.StatusForbidden) {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}

func TestHandleWS_SnapshotAndLiveEvents(t *testing.T) {
	env := newTestEnv(t)
	env.engine.Add(scheduler.Record{Text: "before"})

	conn := dialWS(t, env)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev stage.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ev.Type != stage.EventPlay || ev.Text != "before" {
		t.Errorf("snapshot = %+v, want play of before", ev)
	}

	env.engine.Add(scheduler.Record{Text: "after"})
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ev.Type != stage.EventPlay || ev.Text != "after" {
		t.Errorf("live event = %+v, want play of after", ev)
	}
}

func TestHandleWS_TextFramesAreSaved(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("typed in the overlay")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "message", "content": "as json"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	eventually(t, "messages to be stored", func() bool {
		msgs, _ := env.store.List(context.Background())
		return len(msgs) == 2
	})

	msgs, _ := env.store.List(context.Background())
	if msgs[0].Content != "typed in the overlay" || msgs[1].Content != "as json" {
		t.Errorf("stored = %+v", msgs)
	}
}

func TestHandleWS_ControlFrames(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	_ = conn.WriteJSON(map[string]any{"type": "control", "action": "pause"})
	eventually(t, "pause", func() bool { return env.engine.Stats().Paused })

	_ = conn.WriteJSON(map[string]any{"type": "control", "action": "resume"})
	eventually(t, "resume", func() bool { return !env.engine.Stats().Paused })

	_ = conn.WriteJSON(map[string]any{"type": "resize", "width": 640, "height": 120})
	eventually(t, "resize", func() bool { return env.engine.Stats().Lanes == 3 })

	_ = conn.WriteJSON(map[string]any{"type": "visibility", "hidden": true})
	eventually(t, "hide", func() bool { return env.engine.Stats().Paused })
}

func TestHandleWS_ServerShutdown(t *testing.T) {
	env := newTestEnv(t)
	serverCtx, serverCancel := context.WithCancel(context.Background())

	// derive request contexts from serverCtx, as BaseContext does in Start
	routes := env.srv.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes.ServeHTTP(w, r.WithContext(serverCtx))
	}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	serverCancel()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatalf("connection not closed after shutdown: %v", err)
		}
		return
	}
}
