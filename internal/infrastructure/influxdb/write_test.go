package influxdb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/sqlbridge/internal/bridge"
)

// recordingWriter keeps points in memory instead of sending them.
type recordingWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (w *recordingWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, p)
}

func (w *recordingWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
}

func newRecordingClient() (*Client, *recordingWriter) {
	w := &recordingWriter{}
	return &Client{writer: w, instance: "abc123", connected: true}, w
}

func TestStatsPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stats := bridge.Stats{
		Name:      "orders",
		State:     bridge.StateRunning,
		Queued:    2,
		Submitted: 10,
		Shared:    5,
		Exclusive: 3,
		Failed:    1,
		Rejected:  4,
	}

	line := write.PointToLineProtocol(statsPoint("abc123", stats, ts), time.Second)

	for _, want := range []string{
		"bridge_stats,",
		"bridge=orders",
		"instance=abc123",
		"state=running",
		"queued=2i",
		"submitted=10u",
		"completed=8u",
		"failed=1u",
		"rejected=4u",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
}

func TestWriteStats(t *testing.T) {
	client, w := newRecordingClient()

	if err := client.WriteStats(context.Background(), bridge.Stats{Name: "orders"}); err != nil {
		t.Fatalf("WriteStats() error = %v", err)
	}
	if len(w.points) != 1 {
		t.Fatalf("points written = %d, want 1", len(w.points))
	}
	if w.points[0].Name() != measurementBridgeStats {
		t.Errorf("measurement = %q, want %q", w.points[0].Name(), measurementBridgeStats)
	}
}

func TestWriteStats_NotConnected(t *testing.T) {
	client, w := newRecordingClient()
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := client.WriteStats(context.Background(), bridge.Stats{Name: "orders"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("WriteStats() error = %v, want ErrNotConnected", err)
	}
	if len(w.points) != 0 {
		t.Errorf("points written after Close = %d, want 0", len(w.points))
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1 (Close flushes pending writes)", w.flushes)
	}
}

func TestWriteStats_CancelledContext(t *testing.T) {
	client, _ := newRecordingClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.WriteStats(ctx, bridge.Stats{}); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteStats() error = %v, want context.Canceled", err)
	}
}

func TestWritePoint(t *testing.T) {
	client, w := newRecordingClient()

	client.WritePoint("migrations",
		map[string]string{"bridge": "orders"},
		map[string]interface{}{"applied": 3},
	)

	if len(w.points) != 1 {
		t.Fatalf("points written = %d, want 1", len(w.points))
	}
	line := write.PointToLineProtocol(w.points[0], time.Second)
	if !strings.HasPrefix(line, "migrations,bridge=orders applied=3i") {
		t.Errorf("line protocol = %q", line)
	}
}

func TestFlush_AfterCloseIsNoop(t *testing.T) {
	client, w := newRecordingClient()

	client.Flush()
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	client.Flush()

	if w.flushes != 2 {
		t.Errorf("flushes = %d, want 2 (one explicit, one from Close)", w.flushes)
	}
}

func TestHandleWriteErrors_WrapsAndForwards(t *testing.T) {
	c, _ := newRecordingClient()

	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	errServer := errors.New("500 internal error")
	errorsCh := make(chan error, 1)
	errorsCh <- errServer
	close(errorsCh)

	c.handleWriteErrors(errorsCh)

	err := <-got
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("callback error = %v, want ErrWriteFailed", err)
	}
	if !errors.Is(err, errServer) {
		t.Errorf("callback error = %v, want it to wrap %v", err, errServer)
	}
}
