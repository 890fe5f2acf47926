package shelf

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

// capturePublisher records published alerts for assertions.
type capturePublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
}

type capturedMessage struct {
	topic   string
	payload []byte
}

func (p *capturePublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, capturedMessage{topic: topic, payload: payload})
	return nil
}

func (p *capturePublisher) all() []capturedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

func TestWatchdog_FlagsStaleAndRecovery(t *testing.T) {
	r := newTestRegistry(t, nil)
	pub := &capturePublisher{}

	w := NewWatchdog(WatchdogParams{
		Registry:   r,
		Interval:   200 * time.Millisecond,
		StaleAfter: 5 * time.Second,
		Publisher:  pub,
	})

	at := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	r.Route(context.Background(), payload(testShelfID, `[100,282,0,100]`), at)

	// Within threshold: quiet.
	w.check(at.Add(time.Second))
	if msgs := pub.all(); len(msgs) != 0 {
		t.Fatalf("messages = %v, want none within threshold", msgs)
	}

	// Past threshold: one stale alert, not repeated on later checks.
	w.check(at.Add(10 * time.Second))
	w.check(at.Add(11 * time.Second))
	msgs := pub.all()
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want exactly one stale alert", len(msgs))
	}
	if !strings.Contains(msgs[0].topic, "shelf-stale") {
		t.Errorf("topic = %q, want shelf-stale alert topic", msgs[0].topic)
	}

	var body map[string]string
	if err := json.Unmarshal(msgs[0].payload, &body); err != nil {
		t.Fatalf("alert payload not JSON: %v", err)
	}
	if body["shelf_id"] != testShelfID || body["status"] != "stale" {
		t.Errorf("alert body = %v", body)
	}

	// Shelf reports again: one recovery announcement.
	r.Route(context.Background(), payload(testShelfID, `[100,282,0,100]`), at.Add(12*time.Second))
	w.check(at.Add(13 * time.Second))
	msgs = pub.all()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want stale + recovery", len(msgs))
	}
	if err := json.Unmarshal(msgs[1].payload, &body); err != nil {
		t.Fatalf("recovery payload not JSON: %v", err)
	}
	if body["status"] != "recovered" {
		t.Errorf("recovery body = %v", body)
	}
}

func TestWatchdog_NoPublisherIsLogOnly(t *testing.T) {
	r := newTestRegistry(t, nil)
	w := NewWatchdog(WatchdogParams{
		Registry:   r,
		Interval:   200 * time.Millisecond,
		StaleAfter: 5 * time.Second,
	})

	at := time.Now()
	r.Route(context.Background(), payload(testShelfID, `[100,282,0,100]`), at.Add(-time.Minute))

	// Must not panic without a publisher.
	w.check(at)
}

func TestWatchdog_StartStop(t *testing.T) {
	w := NewWatchdog(WatchdogParams{
		Registry:   newTestRegistry(t, nil),
		Interval:   10 * time.Millisecond,
		StaleAfter: time.Second,
	})

	w.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
