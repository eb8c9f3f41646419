package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jpalmerr/danmaku/internal/store"
)

// failingStore fails every read and write.
type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Save(context.Context, string) (store.Message, error) {
	return store.Message{}, errors.New("disk on fire")
}

func (failingStore) List(context.Context) ([]store.Message, error) {
	return nil, errors.New("disk on fire")
}

func TestSubmit_Form(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"content": {"hello from the form"}}.Encode()
	rec := env.do(http.MethodPost, "/", "application/x-www-form-urlencoded", form)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	msgs, _ := env.store.List(context.Background())
	if len(msgs) != 1 || msgs[0].Content != "hello from the form" {
		t.Errorf("stored = %+v", msgs)
	}
}

func TestSubmit_JSONOnRoot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/", "application/json; charset=utf-8", `{"content":"json root"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	msgs, _ := env.store.List(context.Background())
	if len(msgs) != 1 || msgs[0].Content != "json root" {
		t.Errorf("stored = %+v", msgs)
	}
}

func TestCreateMessage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/messages", "application/json", `{"content":"api"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var msg store.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if msg.ID == "" || msg.Content != "api" {
		t.Errorf("response = %+v, want the saved message", msg)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
	}{
		{"empty form", "/", "application/x-www-form-urlencoded", "content="},
		{"missing form field", "/", "application/x-www-form-urlencoded", "other=1"},
		{"blank json", "/api/messages", "application/json", `{"content":"   "}`},
		{"malformed json", "/api/messages", "application/json", `{"content":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(http.MethodPost, tt.target, tt.contentType, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if msgs, _ := env.store.List(context.Background()); len(msgs) != 0 {
				t.Errorf("stored %d messages, want 0", len(msgs))
			}
		})
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.srv.store = failingStore{store.NewMemoryStore()}

	rec := env.do(http.MethodPost, "/api/messages", "application/json", `{"content":"x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _ = env.store.Save(ctx, "first")
	_, _ = env.store.Save(ctx, "second")

	for _, target := range []string{"/messages", "/api/messages"} {
		t.Run(target, func(t *testing.T) {
			rec := env.do(http.MethodGet, target, "", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			var got []struct {
				Data string    `json:"data"`
				Date time.Time `json:"date"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(got) != 2 || got[0].Data != "first" || got[1].Data != "second" {
				t.Errorf("list = %+v", got)
			}
			if got[0].Date.IsZero() {
				t.Error("date missing")
			}
		})
	}
}

func TestListMessages_Empty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/messages", "", "")
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestListMessages_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.srv.store = failingStore{store.NewMemoryStore()}

	if rec := env.do(http.MethodGet, "/messages", "", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
