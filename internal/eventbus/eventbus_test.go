package eventbus

import (
	"testing"
	"time"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("no event received")
		var zero T
		return zero
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New[string]()
	defer bus.Close()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish("hello")
	if got := recv(t, a); got != "hello" {
		t.Errorf("a received %q", got)
	}
	if got := recv(t, b); got != "hello" {
		t.Errorf("b received %q", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New[string]()
	defer bus.Close()
	a := bus.Subscribe()
	b := bus.Subscribe()
	bus.Unsubscribe(a)

	if _, ok := <-a; ok {
		t.Error("unsubscribed channel not closed")
	}
	bus.Publish("later")
	if got := recv(t, b); got != "later" {
		t.Errorf("b received %q", got)
	}
}

func TestFullSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := New[int]()
	defer bus.Close()
	slow := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	// the slow subscriber keeps the earliest events it had room for
	if got := recv(t, slow); got != 0 {
		t.Errorf("first buffered event = %d, want 0", got)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	bus := New[string]()
	ch := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch; ok {
		t.Error("channel still open after Close")
	}
	// publishing or closing again must not panic
	bus.Publish("ignored")
	bus.Close()
	if _, ok := <-bus.Subscribe(); ok {
		t.Error("subscription after Close returned an open channel")
	}
}
