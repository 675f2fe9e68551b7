package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/outager/outager/internal/pkg/ctxlog"
	"golang.org/x/time/rate"
)

// Client message types.
const (
	TypeJoinOrganization  = "join-organization"
	TypeLeaveOrganization = "leave-organization"
)

const maxOrganizationIDLength = 64

// HandlerConfig contains WebSocket endpoint settings.
type HandlerConfig struct {
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	InboundRate     float64
	InboundBurst    int
	MaxMessageBytes int64
	OriginPatterns  []string
}

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type           string `json:"type"`
	OrganizationID string `json:"organization_id"`
}

// Handler serves the /ws endpoint.
type Handler struct {
	hub *Hub
	cfg HandlerConfig
}

// NewHandler creates a WebSocket handler bound to hub.
func NewHandler(hub *Hub, cfg HandlerConfig) *Handler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = 5
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = 10
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 4096
	}
	return &Handler{hub: hub, cfg: cfg}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.ServeWS)
}

// ServeWS upgrades the connection and pumps hub messages to it until
// either side goes away.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	// Server timeouts must not carry over to the hijacked connection.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		ctxlog.FromContext(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	sub := h.hub.NewSubscriber()
	defer h.hub.Remove(sub)

	logger := ctxlog.FromContext(r.Context()).With("subscriber_id", sub.ID())
	logger.Debug("realtime subscriber connected", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	go h.writeLoop(ctx, cancel, conn, sub, logger)

	limiter := rate.NewLimiter(rate.Limit(h.cfg.InboundRate), h.cfg.InboundBurst)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				logger.Debug("realtime read failed", "error", err)
			}
			return
		}
		if !limiter.Allow() {
			logger.Warn("realtime client exceeded message rate")
			conn.Close(websocket.StatusPolicyViolation, "rate limit exceeded")
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("ignoring malformed realtime frame", "error", err)
			continue
		}
		if err := h.handleMessage(sub, msg); err != nil {
			if errors.Is(err, ErrTooManyGroups) {
				conn.Close(websocket.StatusPolicyViolation, err.Error())
				return
			}
			logger.Debug("ignoring realtime message", "type", msg.Type, "error", err)
		}
	}
}

func (h *Handler) handleMessage(sub *Subscriber, msg ClientMessage) error {
	organizationID, err := normalizeOrganizationID(msg.OrganizationID)
	if err != nil {
		return err
	}

	switch msg.Type {
	case TypeJoinOrganization:
		return h.hub.Subscribe(sub, organizationID)
	case TypeLeaveOrganization:
		h.hub.Unsubscribe(sub, organizationID)
		return nil
	default:
		return errUnknownMessageType
	}
}

var (
	errUnknownMessageType    = errors.New("unknown message type")
	errInvalidOrganizationID = errors.New("invalid organization id")
)

// normalizeOrganizationID canonicalizes UUIDs so they match the ids
// publishers use. Other non-empty ids are kept as is.
func normalizeOrganizationID(raw string) (string, error) {
	if raw == "" || len(raw) > maxOrganizationIDLength {
		return "", errInvalidOrganizationID
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id.String(), nil
	}
	return raw, nil
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sub *Subscriber, logger *slog.Logger) {
	defer cancel()

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			conn.Close(websocket.StatusTryAgainLater, "subscriber too slow")
			return
		case frame := <-sub.Messages():
			writeCtx, writeCancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			writeCancel()
			if err != nil {
				logger.Debug("realtime write failed", "error", err)
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				logger.Debug("realtime ping failed", "error", err)
				return
			}
		}
	}
}
