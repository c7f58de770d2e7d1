package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"AeroPulse/internal/domain/models"
	xlogger "AeroPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// ScorecardUpdate is pushed to websocket subscribers after every cycle.
type ScorecardUpdate struct {
	Type        string                `json:"type"`
	CycleID     string                `json:"cycle_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Scorecard   models.Scorecard      `json:"scorecard"`
	Alerts      []models.Alert        `json:"alerts"`
	Sources     []models.SourceStatus `json:"sources"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// ScorecardHub streams scorecard updates over websockets. It is a dashboard publisher.
type ScorecardHub struct {
	logger *xlogger.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    []byte
	closed  bool
}

func NewScorecardHub(logger *xlogger.Logger) *ScorecardHub {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ScorecardHub{logger: logger, clients: make(map[*wsClient]struct{})}
}

func (h *ScorecardHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/scorecard", h.Serve)
}

// Clients returns the number of connected subscribers.
func (h *ScorecardHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish broadcasts d. Subscribers that cannot keep up are dropped.
func (h *ScorecardHub) Publish(_ context.Context, d *models.Dashboard) error {
	if d == nil {
		return nil
	}
	msg, err := json.Marshal(ScorecardUpdate{
		Type:        "scorecard",
		CycleID:     d.CycleID,
		GeneratedAt: d.GeneratedAt,
		Scorecard:   d.Scorecard,
		Alerts:      d.Alerts,
		Sources:     d.Sources,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket subscriber")
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

// Close disconnects every subscriber and refuses new ones.
func (h *ScorecardHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	return nil
}

// Serve upgrades the request and streams updates until the peer leaves.
func (h *ScorecardHub) Serve(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	client := &wsClient{conn: ws, send: make(chan []byte, sendBuffer)}
	if !h.register(client) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return nil
	}
	h.logger.Info("websocket subscriber connected", xlogger.String("remote", c.RealIP()))

	go h.writeLoop(client)
	h.readLoop(client)
	return nil
}

func (h *ScorecardHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	return true
}

func (h *ScorecardHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// readLoop drains control frames so pongs are seen and disconnects detected.
func (h *ScorecardHub) readLoop(c *wsClient) {
	defer func() {
		h.unregister(c)
		h.logger.Info("websocket subscriber disconnected")
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ScorecardHub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
