package notifyfeed_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/notifyfeed"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeChanges delivers one change per value sent on events; closing
// events ends the stream with err.
type fakeChanges struct {
	events chan struct{}
	err    error
}

func (c *fakeChanges) Next(ctx context.Context) bool {
	select {
	case _, ok := <-c.events:
		return ok
	case <-ctx.Done():
		return false
	}
}
func (c *fakeChanges) Err() error                  { return c.err }
func (c *fakeChanges) Close(context.Context) error { return nil }

type fakeSource struct {
	mu       sync.Mutex
	rows     []models.Notification
	watchErr []error // consumed in order by Watch; nil entries succeed
	streams  chan *fakeChanges
	watches  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{streams: make(chan *fakeChanges, 4)}
}

func (s *fakeSource) add(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]models.Notification{n}, s.rows...)
}

func (s *fakeSource) Snapshot(context.Context, primitive.ObjectID) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.rows...), nil
}

func (s *fakeSource) Watch(context.Context, primitive.ObjectID) (notifyfeed.Changes, error) {
	s.mu.Lock()
	s.watches++
	var err error
	if len(s.watchErr) > 0 {
		err, s.watchErr = s.watchErr[0], s.watchErr[1:]
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c := &fakeChanges{events: make(chan struct{}, 4)}
	s.streams <- c
	return c, nil
}

func (s *fakeSource) watchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watches
}

func recv(t *testing.T, ch <-chan []models.Notification) []models.Notification {
	t.Helper()
	select {
	case rows, ok := <-ch:
		if !ok {
			t.Fatal("feed closed unexpectedly")
		}
		return rows
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func note() models.Notification {
	return models.Notification{ID: primitive.NewObjectID(), Type: models.NotifyChatMessage}
}

func TestStream_InitialSnapshotThenChanges(t *testing.T) {
	src := newFakeSource()
	src.add(note())
	feed := notifyfeed.New(src, zap.NewNop(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := feed.Stream(ctx, primitive.NewObjectID())

	if got := recv(t, ch); len(got) != 1 {
		t.Fatalf("initial snapshot: got %d rows, want 1", len(got))
	}

	stream := <-src.streams
	src.add(note())
	stream.events <- struct{}{}

	if got := recv(t, ch); len(got) != 2 {
		t.Errorf("after change: got %d rows, want 2", len(got))
	}
}

func TestStream_ClosesWhenContextEnds(t *testing.T) {
	src := newFakeSource()
	feed := notifyfeed.New(src, zap.NewNop(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	ch := feed.Stream(ctx, primitive.NewObjectID())
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not close after cancel")
	}
}

func TestStream_RestartsAfterStreamError(t *testing.T) {
	src := newFakeSource()
	src.add(note())
	feed := notifyfeed.New(src, zap.NewNop(), time.Hour).WithBackoff(time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := feed.Stream(ctx, primitive.NewObjectID())
	recv(t, ch)

	// A change that never reaches the dropped stream is still delivered,
	// because the restart re-reads.
	first := <-src.streams
	src.add(note())
	first.err = errors.New("connection reset")
	close(first.events)

	if got := recv(t, ch); len(got) != 2 {
		t.Errorf("after restart: got %d rows, want 2", len(got))
	}
	<-src.streams
	if n := src.watchCount(); n != 2 {
		t.Errorf("expected 2 watch attempts, got %d", n)
	}
}

func TestStream_RetriesFailedWatch(t *testing.T) {
	src := newFakeSource()
	src.watchErr = []error{errors.New("server selection timeout")}
	feed := notifyfeed.New(src, zap.NewNop(), time.Hour).WithBackoff(time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := feed.Stream(ctx, primitive.NewObjectID())

	recv(t, ch) // initial snapshot is not held back by the failed watch
	recv(t, ch) // snapshot after the successful retry
	if n := src.watchCount(); n != 2 {
		t.Errorf("expected 2 watch attempts, got %d", n)
	}
}

func TestStream_FallsBackToPolling(t *testing.T) {
	src := newFakeSource()
	src.watchErr = []error{mongo.CommandError{Code: 40573, Message: "The $changeStream stage is only supported on replica sets"}}
	feed := notifyfeed.New(src, zap.NewNop(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := feed.Stream(ctx, primitive.NewObjectID())

	if got := recv(t, ch); len(got) != 0 {
		t.Fatalf("initial snapshot: got %d rows, want 0", len(got))
	}
	src.add(note())
	if got := recv(t, ch); len(got) != 1 {
		t.Errorf("polled snapshot: got %d rows, want 1", len(got))
	}
	if n := src.watchCount(); n != 1 {
		t.Errorf("polling should not re-watch, got %d watches", n)
	}
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"code 40573", mongo.CommandError{Code: 40573}, true},
		{"standalone message", errors.New("(Location40573) The $changeStream stage is only supported on replica sets"), true},
		{"network", errors.New("connection refused"), false},
		{"other code", mongo.CommandError{Code: 11000, Message: "dup"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := notifyfeed.Unsupported(tc.err); got != tc.want {
				t.Errorf("Unsupported(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
