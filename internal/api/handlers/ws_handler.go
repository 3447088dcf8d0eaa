package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/jobhunt/internal/notify"
	"github.com/yoockh/jobhunt/internal/services"
)

// WSHandler relays a search's status channel to the browser so the
// dashboard learns when results land without polling.
type WSHandler struct {
	searches services.SearchService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(searches services.SearchService, rdb *redis.Client, allowedOrigins []string) *WSHandler {
	allow := map[string]struct{}{}
	for _, o := range allowedOrigins {
		if o != "" {
			allow[o] = struct{}{}
		}
	}
	return &WSHandler{
		searches: searches,
		redis:    rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allow) == 0 {
					return true
				}
				_, ok := allow[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) SearchWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	searchID, ok := searchIDParam(c)
	if !ok {
		return
	}

	// authorize ownership before upgrading
	if _, err := h.searches.Get(c.Request.Context(), userID, searchID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe and wait for the confirmation before reading the snapshot,
	// so an update published in between is delivered rather than lost.
	pubsub := h.redis.Subscribe(ctx, notify.Channel(searchID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return
	}

	search, err := h.searches.Get(ctx, userID, searchID)
	if err != nil {
		return
	}
	snapshot, _ := json.Marshal(notify.Update{
		Type:      "status",
		SearchID:  search.ID,
		TaskID:    search.TaskID,
		Stage:     "snapshot",
		Status:    string(search.Status),
		TotalJobs: search.TotalJobs,
		At:        time.Now().UTC(),
	})
	if err := wc.writeText(snapshot); err != nil {
		return
	}

	// reader: only watches for close and keeps the read deadline fresh
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	msgs := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			wc.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// forward as-is (payload is notify.Update JSON)
			if err := wc.writeText([]byte(m.Payload)); err != nil {
				return
			}
		}
	}
}
