package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/lobbyworks/presencehub/internal/dependencies/clock"
	"github.com/lobbyworks/presencehub/internal/model"
	"github.com/lobbyworks/presencehub/internal/services/identity"
	"github.com/lobbyworks/presencehub/internal/services/presence"
	"github.com/lobbyworks/presencehub/internal/services/ratelimit"
	"github.com/lobbyworks/presencehub/internal/storage"
)

const maxChatLength = 500

// HandlerConfig wires the websocket handler's collaborators
type HandlerConfig struct {
	Engine         *identity.Engine
	Publisher      *presence.Publisher
	Limiter        *ratelimit.Limiter
	Hub            *Hub
	Chat           storage.ChatStore
	Clock          clock.Clock
	Logger         *slog.Logger
	AllowedOrigins []string
	ChatReplay     int
}

// Handler upgrades connections and dispatches the wire protocol. All
// resolution decisions live in the identity engine; the handler only
// translates messages and routes fan-out.
type Handler struct {
	engine     *identity.Engine
	publisher  *presence.Publisher
	limiter    *ratelimit.Limiter
	hub        *Hub
	chat       storage.ChatStore
	clock      clock.Clock
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	chatReplay int
}

// NewHandler creates the websocket handler
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		engine:     cfg.Engine,
		publisher:  cfg.Publisher,
		limiter:    cfg.Limiter,
		hub:        cfg.Hub,
		chat:       cfg.Chat,
		clock:      cfg.Clock,
		logger:     cfg.Logger.With(slog.String("component", "ws")),
		chatReplay: cfg.ChatReplay,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// ServeWS is the websocket endpoint: rate-limit gate, upgrade, registry
// admission, then the two pumps.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	addr := remoteHost(r.RemoteAddr)
	if !h.limiter.Allow(addr) {
		h.logger.Warn("connection rate limited", slog.String("remote_addr", addr))
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.Any("error", err))
		return
	}

	rec := h.engine.Register(addr, r.Header.Get("Origin"))
	client := newClient(h.hub, conn, rec.ID, h.logger)
	h.hub.Register(client)

	go client.writePump()
	go client.readPump(h)
}

// handleMessage dispatches one inbound frame. Malformed frames are dropped
// without closing the connection.
func (h *Handler) handleMessage(c *Client, payload []byte) {
	var msg inbound
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Debug("malformed message dropped",
			slog.String("connection_id", string(c.connID)))
		return
	}
	h.engine.Touch(c.connID)

	switch msg.Type {
	case typeIdentity:
		h.handleIdentity(c, msg)
	case typeUpdateName:
		h.handleUpdateName(c, msg)
	case typeUpdateLocation:
		h.handleUpdateLocation(c, msg)
	case typeGetUsers:
		h.publisher.PublishAll()
	case typeChat:
		h.handleChat(c, msg)
	case typeStatUpdate:
		h.handleStatUpdate(c, msg)
	case typeGame, typeVoice:
		h.relay(c, msg)
	default:
		h.logger.Debug("unknown message type dropped",
			slog.String("type", msg.Type))
	}
}

func (h *Handler) handleIdentity(c *Client, msg inbound) {
	if msg.BrowserFingerprint == "" {
		c.Send(marshalError("browserFingerprint is required"))
		return
	}

	res, err := h.engine.Resolve(c.connID, msg.BrowserFingerprint, msg.UserID, msg.UserName)
	if err != nil {
		h.logger.Warn("identity resolution failed",
			slog.String("connection_id", string(c.connID)),
			slog.Any("error", err))
		c.Send(marshalError("identity resolution failed"))
		return
	}

	if res.CapExceeded {
		c.closeWithPolicy(CloseTooManyConnections, reasonTooManyConnections)
		return
	}

	c.playerID = res.PlayerID
	c.displayName = res.DisplayName

	welcome, err := json.Marshal(welcomeMessage{
		Type:                     "welcome",
		UserID:                   string(res.PlayerID),
		UserName:                 res.DisplayName,
		FirstJoined:              res.FirstJoined,
		Location:                 res.Location,
		Status:                   res.Status,
		IdentityConflictResolved: res.ConflictResolved,
	})
	if err == nil {
		c.Send(welcome)
	}

	h.replayChat(c)
	// Deliver the roster to the new connection directly before the broadcast
	// so it always has a snapshot even if its hub buffer is contended
	h.publisher.PublishTo(c)
	h.publisher.PublishAll()
}

func (h *Handler) handleUpdateName(c *Client, msg inbound) {
	changed, err := h.engine.UpdateName(model.PlayerID(msg.UserID), msg.UserName)
	ack := nameUpdatedMessage{Type: "nameUpdated", Success: err == nil, UserName: msg.UserName}
	if payload, merr := json.Marshal(ack); merr == nil {
		c.Send(payload)
	}
	if err != nil {
		return
	}
	if c.playerID == model.PlayerID(msg.UserID) {
		c.displayName = msg.UserName
	}
	if changed {
		h.publisher.PublishAll()
	}
}

func (h *Handler) handleUpdateLocation(c *Client, msg inbound) {
	if c.playerID == "" {
		return
	}
	changed, err := h.engine.UpdateLocation(c.playerID, msg.Location)
	if err != nil {
		return
	}
	if changed {
		h.publisher.PublishAll()
	}
}

func (h *Handler) handleChat(c *Client, msg inbound) {
	if c.playerID == "" {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if len(text) > maxChatLength {
		// Back up to a rune boundary so the cut never splits a multi-byte
		// character
		cut := maxChatLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	chatMsg := model.ChatMessage{
		PlayerID:    c.playerID,
		DisplayName: c.displayName,
		Text:        text,
		SentAt:      h.clock.Now(),
	}
	if err := h.chat.AppendChatMessage(context.Background(), chatMsg); err != nil {
		h.logger.Warn("chat append failed", slog.Any("error", err))
	}

	payload, err := json.Marshal(chatOutbound{
		Type:     "chat",
		UserID:   string(chatMsg.PlayerID),
		UserName: chatMsg.DisplayName,
		Text:     chatMsg.Text,
		SentAt:   chatMsg.SentAt,
	})
	if err == nil {
		h.hub.Broadcast(payload)
	}
}

func (h *Handler) handleStatUpdate(c *Client, msg inbound) {
	if c.playerID == "" || msg.Key == "" {
		return
	}
	if err := h.engine.UpdateStatistic(c.playerID, msg.Key, msg.Value); err != nil {
		h.logger.Debug("statistic rejected",
			slog.String("player_id", string(c.playerID)),
			slog.String("key", msg.Key),
			slog.Any("error", err))
	}
}

// relay stamps gameplay and voice payloads with the sender's resolved
// identity and fans them out to everyone else. Unidentified senders are
// dropped: relayed traffic must always be attributable.
func (h *Handler) relay(c *Client, msg inbound) {
	if c.playerID == "" {
		return
	}
	payload, err := json.Marshal(relayMessage{
		Type:     msg.Type,
		UserID:   string(c.playerID),
		UserName: c.displayName,
		Payload:  msg.Payload,
	})
	if err != nil {
		return
	}
	h.hub.BroadcastExcept(c, payload)
}

// handleDisconnect tears a connection down exactly once. The engine's close
// is idempotent, so racing teardown paths (read error vs. cap shutdown) are
// safe.
func (h *Handler) handleDisconnect(c *Client) {
	_ = c.conn.Close()
	h.hub.Unregister(c)
	if h.engine.MarkConnectionClosed(c.connID) {
		h.publisher.PublishAll()
	}
}

func (h *Handler) replayChat(c *Client) {
	if h.chatReplay <= 0 {
		return
	}
	messages, err := h.chat.RecentChatMessages(context.Background(), h.chatReplay)
	if err != nil {
		h.logger.Warn("chat replay failed", slog.Any("error", err))
		return
	}
	if len(messages) == 0 {
		return
	}
	payload, err := json.Marshal(chatHistoryMessage{Type: "chatHistory", Messages: messages})
	if err == nil {
		c.Send(payload)
	}
}

// originChecker allows any origin when the allow-list is empty, matching the
// behavior browser game clients expect during local development
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[strings.ToLower(origin)] = true
	}
	return func(r *http.Request) bool {
		origin := strings.ToLower(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		return set[origin]
	}
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
