// internal/app/features/notifications/stream.go
package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.uber.org/zap"
)

// snapshot is one SSE payload. Unread counts the unread rows in Items.
type snapshot struct {
	Items  []models.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

// ServeStream handles GET /notifications/stream as Server-Sent Events. Each
// "notifications" event carries a full snapshot; the stream ends when the
// client goes away.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	feed := h.Feed.Stream(ctx, u.ID)

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case rows, open := <-feed:
			if !open {
				return
			}
			if err := writeEvent(w, rows); err != nil {
				h.Log.Debug("notification stream closed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, rows []models.Notification) error {
	s := snapshot{Items: rows}
	if s.Items == nil {
		s.Items = []models.Notification{}
	}
	for _, n := range rows {
		if !n.IsRead {
			s.Unread++
		}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: notifications\ndata: %s\n\n", data)
	return err
}
