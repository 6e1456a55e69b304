package telemetry

import (
	"testing"
	"time"
)

func TestSubscribePublishReceives(t *testing.T) {
	b := NewBroadcaster(4)
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(Event{Kind: KindConnected})

	select {
	case ev := <-ch:
		if ev.Kind != KindConnected {
			t.Fatalf("kind = %v, want %v", ev.Kind, KindConnected)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcaster(4)
	ch, unsub := b.Subscribe()
	unsub()

	b.Publish(Event{Kind: KindMessageIn})

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestSubscriberCount(t *testing.T) {
	b := NewBroadcaster(4)
	if b.SubscriberCount() != 0 {
		t.Fatalf("count = %d, want 0", b.SubscriberCount())
	}
	_, unsub1 := b.Subscribe()
	_, unsub2 := b.Subscribe()
	if b.SubscriberCount() != 2 {
		t.Fatalf("count = %d, want 2", b.SubscriberCount())
	}
	unsub1()
	if b.SubscriberCount() != 1 {
		t.Fatalf("count = %d, want 1", b.SubscriberCount())
	}
	unsub2()
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	b := NewBroadcaster(2)
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(Event{Kind: KindConnected, Detail: "1"})
	b.Publish(Event{Kind: KindConnected, Detail: "2"})
	b.Publish(Event{Kind: KindConnected, Detail: "3"})

	first := <-ch
	if first.Detail != "2" {
		t.Fatalf("first received = %q, want %q (oldest should have been dropped)", first.Detail, "2")
	}
	second := <-ch
	if second.Detail != "3" {
		t.Fatalf("second received = %q, want %q", second.Detail, "3")
	}
}

func TestDefaultBufferSize(t *testing.T) {
	b := NewBroadcaster(0)
	if b.bufferSize != 64 {
		t.Fatalf("bufferSize = %d, want 64", b.bufferSize)
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	b := NewBroadcaster(4)
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Kind: KindToolCall, Tool: "url_fetch"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Tool != "url_fetch" {
				t.Fatalf("tool = %q, want url_fetch", ev.Tool)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}
