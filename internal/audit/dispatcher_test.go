package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type ctxKey struct{}

type recordingSink struct {
	mu     sync.Mutex
	types  []string
	values []any
}

func (s *recordingSink) Emit(ctx context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, e.EventType)
	s.values = append(s.values, ctx.Value(ctxKey{}))
}

func TestNilDispatcherDiscards(t *testing.T) {
	if d := NewDispatcher(Config{Enabled: false}, &countingSink{}); d != nil {
		t.Fatal("disabled config must yield a nil dispatcher")
	}
	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestCloseFlushesQueuedEvents(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()
	if got := sink.count.Load(); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
}

func TestExcludedTypesNeverReachSink(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 8,
		Exclude:    []string{"authenticate_rejected"},
	}, sink)
	d.Emit(context.Background(), Event{EventType: "authenticate_rejected"})
	d.Emit(context.Background(), Event{EventType: "login_failure"})
	d.Close()

	if strings.Join(sink.types, ",") != "login_failure" {
		t.Fatalf("unexpected delivered types %v", sink.types)
	}
	if d.Dropped() != 0 {
		t.Fatal("excluded events are not drops")
	}
}

func TestSinkSeesRequestValuesAfterCancel(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-7"))
	d.Emit(ctx, Event{EventType: "logout"})
	cancel()
	d.Close()

	if len(sink.values) != 1 || sink.values[0] != "req-7" {
		t.Fatalf("expected request value to reach sink, got %v", sink.values)
	}
}

func TestFullQueueDropsAndReports(t *testing.T) {
	sink := newGateSink()
	var reported []string
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		OnDrop:     func(e Event) { reported = append(reported, e.EventType) },
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("emit must not wait when DropIfFull is set")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected a drop once the queue is full")
	}
	if len(reported) == 0 || reported[len(reported)-1] != "e3" {
		t.Fatalf("expected OnDrop to see e3, got %v", reported)
	}
}

func TestFullQueueWaitsForRoom(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("emit must wait while the queue is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiting emit must proceed once the worker frees a slot")
	}
}

func TestCancelledWaitCountsAsDrop(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "e3"})
	if d.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", d.Dropped())
	}
}

func TestEmitAfterCloseIsIgnored(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})

	if got := sink.count.Load(); got != 1 {
		t.Fatalf("expected only the pre-close event, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatal("post-close emits are not drops")
	}
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp: time.Now().UTC(),
		EventType: "login_success",
		UserID:    "u1",
		IP:        "127.0.0.1",
		Success:   true,
	})

	out := buf.String()
	if !strings.Contains(out, "login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !strings.Contains(out, "\"user_id\":\"u1\"") {
		t.Fatal("expected JSON log line to contain user id")
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected newline-terminated record")
	}
}

func TestSlogSinkWritesGroupedRecord(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewSlogSink(logger).Emit(context.Background(), Event{
		EventType: "login_failure",
		IP:        "10.0.0.9",
		Error:     "invalid credentials",
		Metadata:  map[string]string{"reason": "password_mismatch"},
	})

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"audit":{`, `"event_type":"login_failure"`, `"reason":"password_mismatch"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
