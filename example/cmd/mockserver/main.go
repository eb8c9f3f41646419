// Standalone mock chat server for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/danmaku serve -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

var phrases = []string{
	"first!", "lol", "this part again", "8888888", "wwwwww",
	"what a play", "弹幕护体", "hello from the chat", "gg", "encore",
}

type listing struct {
	Data string    `json:"data"`
	Date time.Time `json:"date"`
}

func main() {
	fmt.Println("Mock chat server starting on :9999")
	fmt.Println("Serves /messages in the danmaku list format, one new message every few seconds")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu       sync.Mutex
		messages []listing
	)

	go func() {
		for {
			msg := listing{Data: phrases[rand.Intn(len(phrases))], Date: time.Now().UTC()}
			mu.Lock()
			messages = append(messages, msg)
			if len(messages) > 20 {
				messages = messages[1:]
			}
			mu.Unlock()
			slog.Info("mock message", "data", msg.Data)
			time.Sleep(time.Duration(2+rand.Intn(5)) * time.Second)
		}
	}()

	http.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		mu.Lock()
		out := append([]listing(nil), messages...)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
