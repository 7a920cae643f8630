// Package webhook is the inbound HTTP boundary for the messaging vendor.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/vidasana/citabot/internal/idempotency"
	"github.com/vidasana/citabot/internal/ratelimit"
	"github.com/vidasana/citabot/pkg/logger"
)

const rateLimitedReply = "Estás enviando mensajes muy rápido 😅 Dame un momento y escríbeme de nuevo."

// inboundMessage is the vendor payload reduced to what the engine needs.
type inboundMessage struct {
	From       string `json:"From"`
	Body       string `json:"Body"`
	MessageSid string `json:"MessageSid"`
}

// Engine turns one inbound message into a reply.
type Engine interface {
	Handle(ctx context.Context, senderID, text string) string
}

// Handler receives vendor webhook deliveries and replies with the
// conversation engine's text wrapped in the vendor envelope. Conversational
// misses never produce a transport error; only a malformed payload does.
type Handler struct {
	engine      Engine
	replies     idempotency.ReplyCache
	limiter     ratelimit.Limiter
	limit       int
	limitWindow time.Duration
	log         *slog.Logger
}

// NewHandler builds the webhook handler. replies and limiter are optional.
func NewHandler(
	engine Engine,
	replies idempotency.ReplyCache,
	limiter ratelimit.Limiter,
	limit int,
	limitWindow time.Duration,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		engine:      engine,
		replies:     replies,
		limiter:     limiter,
		limit:       limit,
		limitWindow: limitWindow,
		log:         log,
	}
}

// ServeWebhook handles POST deliveries from the messaging vendor.
func (h *Handler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	msg, ok := h.parsePayload(r)
	if !ok {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	log := h.log.With(
		slog.String("sender_id", msg.From),
		slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
	)
	log.Info("inbound message received", slog.String("message_sid", msg.MessageSid))

	if reply, found := h.cachedReply(ctx, msg.MessageSid); found {
		log.Info("replaying cached reply", slog.String("message_sid", msg.MessageSid))
		writeTwiML(w, reply)
		return
	}

	if !h.allow(ctx, msg.From, log) {
		writeTwiML(w, rateLimitedReply)
		return
	}

	reply := h.engine.Handle(ctx, msg.From, msg.Body)

	h.cacheReply(ctx, msg.MessageSid, reply)

	writeTwiML(w, reply)
}

// parsePayload accepts the vendor's form encoding, with a JSON fallback for
// manual testing. A payload without a sender or a body is malformed.
func (h *Handler) parsePayload(r *http.Request) (inboundMessage, bool) {
	var msg inboundMessage

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			return inboundMessage{}, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return inboundMessage{}, false
		}
		msg = inboundMessage{
			From:       r.PostForm.Get("From"),
			Body:       r.PostForm.Get("Body"),
			MessageSid: r.PostForm.Get("MessageSid"),
		}
	}

	if strings.TrimSpace(msg.From) == "" || strings.TrimSpace(msg.Body) == "" {
		return inboundMessage{}, false
	}

	return msg, true
}

func (h *Handler) cachedReply(ctx context.Context, messageSID string) (string, bool) {
	if h.replies == nil || messageSID == "" {
		return "", false
	}

	reply, found, err := h.replies.Get(ctx, messageSID)
	if err != nil {
		// Deduplication is best effort; a cache miss just reprocesses.
		return "", false
	}

	return reply, found
}

func (h *Handler) cacheReply(ctx context.Context, messageSID, reply string) {
	if h.replies == nil || messageSID == "" {
		return
	}

	_ = h.replies.Set(ctx, messageSID, reply)
}

// allow fails open: a broken limiter must not take the webhook down.
func (h *Handler) allow(ctx context.Context, senderID string, log *slog.Logger) bool {
	if h.limiter == nil || h.limit <= 0 {
		return true
	}

	result, err := h.limiter.Check(ctx, senderID, h.limit, h.limitWindow)
	if err != nil && result == nil {
		log.Warn("rate limiter unavailable", slog.Any("error", err))
		return true
	}

	if result != nil && !result.Allowed {
		log.Warn("sender rate limited", slog.Time("reset_at", result.ResetAt))
		return false
	}

	return true
}
