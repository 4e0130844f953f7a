package availability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/middleware"
	"fieldbooking/internal/modules/booking"
	"fieldbooking/internal/pkg/jwt"
	"fieldbooking/internal/pkg/logger"
	"fieldbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
)

// Snapshotter returns the current busy slots of a sub-field on a date.
type Snapshotter interface {
	GetAvailability(ctx context.Context, subFieldID int64, date string) (*booking.AvailabilityView, error)
}

type Message struct {
	Type string                    `json:"type"`
	Data *booking.AvailabilityView `json:"data"`
}

type Handler struct {
	hub      *Hub
	source   Snapshotter
	tokens   *jwt.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(hub *Hub, source Snapshotter, tokens *jwt.Service, origins []string, log *zap.Logger) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub:    hub,
		source: source,
		tokens: tokens,
		logger: logger.OrNop(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/availability", h.Watch)
}

// Watch godoc
// @Summary      Live availability of a sub-field
// @Description  Websocket that sends a snapshot on connect and again after every booking change on the watched date
// @Tags         Availability
// @Param        sub_field_id query int true "Sub-field ID"
// @Param        date query string true "YYYY-MM-DD"
// @Param        token query string true "JWT access token"
// @Router       /ws/availability [get]
func (h *Handler) Watch(c *gin.Context) {
	actor, err := middleware.ActorFromToken(h.tokens, c.Query("token"))
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	if err := actor.Require(domain.OpWatchAvailability); err != nil {
		response.FromError(c, err)
		return
	}
	subFieldID, err := strconv.ParseInt(c.Query("sub_field_id"), 10, 64)
	if err != nil || subFieldID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "sub_field_id is required")
		return
	}
	topic := Topic{SubFieldID: subFieldID, Date: c.Query("date")}

	snapshot, err := h.source.GetAvailability(c.Request.Context(), topic.SubFieldID, topic.Date)
	if err != nil {
		response.FromError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(topic)
	if sub == nil {
		return
	}
	defer h.hub.Unsubscribe(sub)

	h.logger.Info("availability watcher connected",
		zap.Int64("user_id", actor.ID),
		zap.Int64("sub_field_id", topic.SubFieldID),
		zap.String("date", topic.Date),
	)

	if err := h.write(conn, snapshot); err != nil {
		return
	}

	done := make(chan struct{})
	go h.readLoop(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			view, err := h.source.GetAvailability(ctx, topic.SubFieldID, topic.Date)
			cancel()
			if err != nil {
				h.logger.Warn("availability snapshot failed", zap.Int64("sub_field_id", topic.SubFieldID), zap.Error(err))
				continue
			}
			if err := h.write(conn, view); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, view *booking.AvailabilityView) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Message{Type: "availability", Data: view})
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Handler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
