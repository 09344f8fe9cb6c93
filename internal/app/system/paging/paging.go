// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size when the client does not ask for one.
const DefaultLimit = 50

// MaxLimit caps the page size a client can request.
const MaxLimit = 200

// ParseLimit reads the "limit" query parameter, clamped to [1, MaxLimit].
func ParseLimit(r *http.Request) int {
	s := query.Get(r, "limit")
	if s == "" {
		return DefaultLimit
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// ParseAfter reads the "after" cursor query parameter.
func ParseAfter(r *http.Request) string {
	return query.Get(r, "after")
}

// Page is one window of a list plus the cursor for the next window.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// TrimPage trims rows fetched with limit+1 look-ahead and reports whether
// another page exists.
func TrimPage[T any](rows *[]T, limit int) (hasNext bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// KeysetConfig holds a decoded name-ordered cursor.
type KeysetConfig struct {
	Cursor *wafflemongo.Cursor
}

// ConfigureKeyset decodes an "after" cursor produced by BuildCursor.
// A malformed cursor is treated as the first page.
func ConfigureKeyset(after string) KeysetConfig {
	var cfg KeysetConfig
	if after == "" {
		return cfg
	}
	if c, ok := wafflemongo.DecodeCursor(after); ok {
		cfg.Cursor = &c
	}
	return cfg
}

// ApplyToFind sorts by sortField then _id ascending and fetches limit+1 rows.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string, limit int) {
	find.SetSort(bson.D{
		{Key: sortField, Value: 1},
		{Key: "_id", Value: 1},
	}).SetLimit(int64(limit + 1))
}

// KeysetWindow returns the filter condition selecting rows after the cursor,
// or nil on the first page.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	return wafflemongo.KeysetWindow(sortField, "gt", cfg.Cursor.CI, cfg.Cursor.ID)
}

// BuildCursor returns the cursor that continues after the last row.
func BuildCursor[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) string {
	if len(rows) == 0 {
		return ""
	}
	last := rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}

// NewestFirst configures find for _id-descending feeds (notifications,
// messages) and returns the filter condition for rows older than after.
// after is the hex id of the last row already seen; anything else is
// treated as the first page.
func NewestFirst(find *options.FindOptions, after string, limit int) bson.M {
	find.SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit + 1))
	if after == "" {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(after)
	if err != nil {
		return nil
	}
	return bson.M{"_id": bson.M{"$lt": oid}}
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
