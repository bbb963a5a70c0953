package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/feed"
	"github.com/gorilla/websocket"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
	feedMaxCommand = 4096
)

// FeedHandler upgrades GET /api/ws to a websocket and runs one live feed
// for the signed-in client until the socket closes.
type FeedHandler struct {
	logger   *common.Logger
	deps     feed.Deps
	guard    *SessionGuard
	upgrader websocket.Upgrader
}

// NewFeedHandler creates a new feed handler. The upgrader keeps gorilla's
// same-origin check.
func NewFeedHandler(logger *common.Logger, deps feed.Deps, guard *SessionGuard) *FeedHandler {
	return &FeedHandler{
		logger: logger,
		deps:   deps,
		guard:  guard,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// wsEmitter writes frames as JSON text messages. Only the feed's Run
// goroutine calls Emit.
type wsEmitter struct {
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(f feed.Frame) error {
	e.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return e.conn.WriteJSON(f)
}

// ServeHTTP handles GET /api/ws.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ok, claims := h.guard.IsLoggedIn(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Str("error", err.Error()).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	owner := claims.ClientID()
	h.logger.Info().Str("client_id", owner).Str("remote", r.RemoteAddr).Msg("live feed connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	f := feed.New(h.deps, &wsEmitter{conn: conn})
	defer f.Close()
	go f.Run(ctx)
	f.SwitchOwner(owner)

	go keepAlive(ctx, conn)
	h.readCommands(conn, f, owner)

	h.logger.Info().Str("client_id", owner).Msg("live feed disconnected")
}

// readCommands feeds browser commands to f until the socket fails.
func (h *FeedHandler) readCommands(conn *websocket.Conn, f *feed.Feed, owner string) {
	conn.SetReadLimit(feedMaxCommand)
	conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Str("client_id", owner).Str("error", err.Error()).Msg("live feed read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		if err := f.HandleCommand(raw); err != nil {
			h.logger.Warn().Str("client_id", owner).Str("error", err.Error()).Msg("ignoring live feed command")
		}
	}
}

// keepAlive pings until ctx ends. WriteControl may run alongside Emit.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
