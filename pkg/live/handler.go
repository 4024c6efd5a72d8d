package live

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

type Handler struct {
	hub    *Hub
	logger interface {
		Printf(string, ...interface{})
	}
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub:    hub,
		logger: log.New(log.Writer(), "[live] ", log.LstdFlags),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws/events", h.handleEvents)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin properly
		return true
	},
}

// handleEvents upgrades the connection and streams hub events until the
// client goes away.
func (h *Handler) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade error: %v", err)
		return
	}

	sub := h.hub.add(conn)
	h.logger.Printf("subscriber %s connected", sub.id)

	go h.readLoop(sub)
	go h.writeLoop(sub)
}

// readLoop drains the connection so pings work and close frames are seen.
func (h *Handler) readLoop(sub *subscriber) {
	defer func() {
		h.hub.remove(sub.id)
		sub.conn.Close()
		h.logger.Printf("subscriber %s disconnected", sub.id)
	}()

	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Printf("websocket error for subscriber %s: %v", sub.id, err)
			}
			return
		}
	}
}

func (h *Handler) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case <-sub.done:
			return
		case event := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteJSON(event); err != nil {
				h.logger.Printf("write error for subscriber %s: %v", sub.id, err)
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
