package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// mockComment is one comment as served by the mock chat API.
type mockComment struct {
	User    string `json:"user"`
	Message struct {
		Body string `json:"body"`
	} `json:"message"`
}

var mockPhrases = []string{
	"first!", "lol", "this part again", "8888888", "wwwwww",
	"what a play", "弹幕护体", "hello from the chat", "nice\ntwo lines",
	"can't believe it", "gg", "encore",
}

// StartMockChatServer runs a mock chat that grows by one comment every
// 2-6 seconds. It serves the comments as JSON at /comments and as plain
// text at /chat.txt. Call this in a goroutine before creating the board.
func StartMockChatServer(addr string) {
	var (
		mu       sync.Mutex
		comments []mockComment
	)

	add := func() {
		var c mockComment
		c.User = fmt.Sprintf("viewer%d", rand.Intn(100))
		c.Message.Body = mockPhrases[rand.Intn(len(mockPhrases))]

		mu.Lock()
		comments = append(comments, c)
		// keep the chat short so cycles pick recent comments
		if len(comments) > 20 {
			comments = comments[1:]
		}
		mu.Unlock()
		slog.Info("mock comment", "user", c.User, "body", c.Message.Body)
	}
	add()

	go func() {
		for {
			time.Sleep(time.Duration(2+rand.Intn(5)) * time.Second)
			add()
		}
	}()

	snapshot := func() []mockComment {
		mu.Lock()
		defer mu.Unlock()
		return append([]mockComment(nil), comments...)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/comments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot()); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})
	mux.HandleFunc("/chat.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, c := range snapshot() {
			// one comment per line
			fmt.Fprintln(w, strings.ReplaceAll(c.Message.Body, "\n", " "))
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
