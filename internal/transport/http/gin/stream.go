package httpgin

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/atelier/internal/domain"
)

const (
	streamBuffer    = 16
	streamKeepAlive = 25 * time.Second
)

// Hub fans change events out to connected server-sent-event clients. Slow
// clients miss events instead of blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[chan domain.Change]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan domain.Change]struct{})}
}

// PublishChange lets the hub act as the change publisher of a single replica.
func (h *Hub) PublishChange(_ context.Context, kind domain.ChangeKind, id string) error {
	h.Broadcast(domain.Change{Type: kind, ID: id, TsUnix: time.Now().Unix()})
	return nil
}

func (h *Hub) Broadcast(ch domain.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub <- ch:
		default:
		}
	}
}

func (h *Hub) subscribe() (<-chan domain.Change, func()) {
	ch := make(chan domain.Change, streamBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *Hub) clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// @Summary  Stream change events
// @Description Server-sent events; each event is named after the change type and carries {type,id,tsUnix}.
// @Tags     slots
// @Produce  text/event-stream
// @Success  200
// @Router   /api/slots/stream [get]
func handleStream(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "change stream disabled"})
			return
		}

		events, unsubscribe := hub.subscribe()
		defer unsubscribe()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		ctx := c.Request.Context()
		c.Stream(func(io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case ev := <-events:
				c.SSEvent(string(ev.Type), ev)
				return true
			case <-keepAlive.C:
				c.SSEvent("ping", time.Now().Unix())
				return true
			}
		})
	}
}
