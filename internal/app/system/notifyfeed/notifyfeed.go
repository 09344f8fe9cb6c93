// Package notifyfeed turns a user's notifications into a live stream of
// snapshots. It listens on a MongoDB change stream and re-reads the
// recipient's list on every change; deployments without change streams
// (standalone mongod) fall back to polling.
package notifyfeed

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	notificationstore "github.com/dalemusser/expensehub/internal/app/store/notifications"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Changes is the subset of *mongo.ChangeStream the feed consumes.
type Changes interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// Source reads a recipient's notifications and watches them for changes.
type Source interface {
	Snapshot(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	Watch(ctx context.Context, userID primitive.ObjectID) (Changes, error)
}

// StoreSource adapts the notification store to Source.
type StoreSource struct {
	Store *notificationstore.Store
	Limit int
}

func (s StoreSource) Snapshot(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	rows, _, err := s.Store.ListForUser(ctx, userID, false, "", s.Limit)
	return rows, err
}

func (s StoreSource) Watch(ctx context.Context, userID primitive.ObjectID) (Changes, error) {
	cs, err := s.Store.Watch(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cs, nil
}

const (
	defaultPoll       = 5 * time.Second
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// Feed fans notification snapshots out to subscribers.
type Feed struct {
	src        Source
	log        *zap.Logger
	poll       time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
}

// New creates a Feed. poll is the polling interval used when change streams
// are unavailable; zero selects 5s.
func New(src Source, log *zap.Logger, poll time.Duration) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	if poll <= 0 {
		poll = defaultPoll
	}
	return &Feed{
		src:        src,
		log:        log,
		poll:       poll,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// WithBackoff overrides the restart delay bounds after stream errors.
func (f *Feed) WithBackoff(lo, hi time.Duration) *Feed {
	f.minBackoff, f.maxBackoff = lo, hi
	return f
}

// Stream emits the user's notifications once immediately and again after
// every change. The channel is closed when ctx ends.
func (f *Feed) Stream(ctx context.Context, userID primitive.ObjectID) <-chan []models.Notification {
	out := make(chan []models.Notification, 1)
	go f.run(ctx, userID, out)
	return out
}

func (f *Feed) run(ctx context.Context, userID primitive.ObjectID, out chan<- []models.Notification) {
	defer close(out)
	log := f.log.With(zap.String("user_id", userID.Hex()))

	backoff := f.minBackoff
	first := true
	for {
		cs, err := f.src.Watch(ctx, userID)
		if err != nil && Unsupported(err) {
			log.Info("change streams unavailable; polling notifications", zap.Duration("interval", f.poll))
			f.pollLoop(ctx, userID, out)
			return
		}
		// Open the stream before reading so nothing between the read and
		// the watch is missed. Each restart re-reads for the same reason.
		if err == nil || first {
			first = false
			if !f.emit(ctx, userID, out) {
				closeQuietly(cs)
				return
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("notification watch failed; retrying", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, f.maxBackoff)
			continue
		}

		backoff = f.minBackoff
		for cs.Next(ctx) {
			if !f.emit(ctx, userID, out) {
				closeQuietly(cs)
				return
			}
		}
		err = cs.Err()
		closeQuietly(cs)
		if ctx.Err() != nil {
			return
		}
		log.Warn("notification change stream ended; restarting", zap.Error(err), zap.Duration("backoff", backoff))
		if !sleep(ctx, backoff) {
			return
		}
		backoff = min(backoff*2, f.maxBackoff)
	}
}

func (f *Feed) pollLoop(ctx context.Context, userID primitive.ObjectID, out chan<- []models.Notification) {
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	var last []models.Notification
	sent := false
	for {
		rows, err := f.src.Snapshot(ctx, userID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			f.log.Warn("notification poll failed", zap.Error(err), zap.String("user_id", userID.Hex()))
		case !sent || changed(last, rows):
			if !send(ctx, out, rows) {
				return
			}
			last, sent = rows, true
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emit reads a snapshot and sends it. It reports false once ctx has ended.
// Read errors are logged and skipped.
func (f *Feed) emit(ctx context.Context, userID primitive.ObjectID, out chan<- []models.Notification) bool {
	rows, err := f.src.Snapshot(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		f.log.Warn("notification snapshot failed", zap.Error(err), zap.String("user_id", userID.Hex()))
		return true
	}
	return send(ctx, out, rows)
}

func send(ctx context.Context, out chan<- []models.Notification, rows []models.Notification) bool {
	select {
	case out <- rows:
		return true
	case <-ctx.Done():
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func closeQuietly(cs Changes) {
	if cs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = cs.Close(ctx)
}

// changed compares two snapshots by id and read state.
func changed(a, b []models.Notification) bool {
	return !slices.EqualFunc(a, b, func(x, y models.Notification) bool {
		return x.ID == y.ID && x.IsRead == y.IsRead
	})
}

// codeChangeStreamsUnsupported is returned by servers that are not part of
// a replica set or sharded cluster.
const codeChangeStreamsUnsupported = 40573

// Unsupported reports whether err means the server cannot serve change streams.
func Unsupported(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeChangeStreamsUnsupported) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "replica set") || strings.Contains(msg, "$changeStream stage is only supported")
}
