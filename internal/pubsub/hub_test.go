package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestNew_DefaultBuffer(t *testing.T) {
	h := New[int](0)
	ch := h.Subscribe()
	if cap(ch) != DefaultBuffer {
		t.Errorf("cap = %d, want %d", cap(ch), DefaultBuffer)
	}
}

func TestHub_Publish(t *testing.T) {
	h := New[string](4)
	ch := h.Subscribe()

	h.Publish("hello")

	select {
	case v := <-ch:
		if v != "hello" {
			t.Errorf("received %q, want %q", v, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive value")
	}
}

func TestHub_FanOut(t *testing.T) {
	h := New[int](4)
	subs := []<-chan int{h.Subscribe(), h.Subscribe(), h.Subscribe()}

	h.Publish(7)

	for i, ch := range subs {
		select {
		case v := <-ch:
			if v != 7 {
				t.Errorf("subscriber %d received %d, want 7", i, v)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := New[int](4)
	ch := h.Subscribe()
	other := h.Subscribe()

	h.Unsubscribe(ch)
	h.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}

	h.Publish(1)
	if v := <-other; v != 1 {
		t.Errorf("remaining subscriber received %d, want 1", v)
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := New[int](2)
	_ = h.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish() blocked on slow subscriber")
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	h := New[int](8)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish(j)
			}
		}()
		go func() {
			defer wg.Done()
			ch := h.Subscribe()
			time.Sleep(5 * time.Millisecond)
			h.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}
