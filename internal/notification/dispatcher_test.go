package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

type recordingTransport struct {
	mu    sync.Mutex
	sent  []Intent
	delay time.Duration
	fail  bool
}

func (t *recordingTransport) Send(_ context.Context, in Intent) error {
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	if t.fail {
		return errors.New("gateway unreachable")
	}
	t.mu.Lock()
	t.sent = append(t.sent, in)
	t.mu.Unlock()
	return nil
}

type recordingMarker struct {
	mu    sync.Mutex
	ulids []string
}

func (m *recordingMarker) MarkNotified(_ context.Context, ulid string) error {
	m.mu.Lock()
	m.ulids = append(m.ulids, ulid)
	m.mu.Unlock()
	return nil
}

func intent(ulid string) Intent {
	return Intent{
		TenantID:   1,
		Attendable: roster.AttendableRef{Type: roster.TypeStudent, ID: 7},
		RecordULID: ulid,
		Kind:       "ENTRY",
		Status:     "LATE",
		Date:       "2025-04-10",
	}
}

func TestDispatcherSendsAndMarks(t *testing.T) {
	tr := &recordingTransport{}
	mk := &recordingMarker{}
	d := NewDispatcher(tr, mk, 8)

	d.Enqueue(intent("A"))
	d.Enqueue(intent("B"))
	d.Close() // 掃き出し待ち

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(tr.sent))
	}

	mk.mu.Lock()
	defer mk.mu.Unlock()
	if len(mk.ulids) != 2 || mk.ulids[0] != "A" || mk.ulids[1] != "B" {
		t.Errorf("marked = %v", mk.ulids)
	}
}

func TestDispatcherDropsOnFullQueue(t *testing.T) {
	tr := &recordingTransport{delay: 50 * time.Millisecond}
	d := NewDispatcher(tr, nil, 1)

	// ワーカーが1件目で詰まっている間に大量投入してもブロックしない
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Enqueue(intent("X"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue must never block")
	}
	d.Close()
}

func TestDispatcherSendFailureDoesNotMark(t *testing.T) {
	tr := &recordingTransport{fail: true}
	mk := &recordingMarker{}
	d := NewDispatcher(tr, mk, 8)

	d.Enqueue(intent("A"))
	d.Close()

	mk.mu.Lock()
	defer mk.mu.Unlock()
	if len(mk.ulids) != 0 {
		t.Errorf("failed send must not mark notified: %v", mk.ulids)
	}
}
