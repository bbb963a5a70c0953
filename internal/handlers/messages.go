package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/live"
	"github.com/bobmcallan/advisor-portal/internal/models"
	"github.com/bobmcallan/advisor-portal/internal/portal"
)

// MessagesHandler serves the client's conversation with their advisor.
type MessagesHandler struct {
	logger     *common.Logger
	subscriber *live.Subscriber
	portal     *portal.Service
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(logger *common.Logger, subscriber *live.Subscriber, svc *portal.Service) *MessagesHandler {
	return &MessagesHandler{logger: logger, subscriber: subscriber, portal: svc}
}

type sendMessageRequest struct {
	Content    string             `json:"content"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

// HandleList handles GET /api/messages. An optional limit keeps the newest
// messages.
func (h *MessagesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	msgs, err := h.subscriber.FetchMessages(r.Context(), owner)
	if err != nil {
		h.logger.Error().Str("client_id", owner).Str("error", err.Error()).Msg("failed to list messages")
		WriteError(w, http.StatusServiceUnavailable, "failed to load messages")
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if len(msgs) > limit {
			msgs = msgs[len(msgs)-limit:]
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
	})
}

// HandleSend handles POST /api/messages.
func (h *MessagesHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.portal.SendMessage(r.Context(), owner, req.Content, req.Attachment)
	if err != nil {
		if errors.Is(err, portal.ErrEmptyMessage) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Str("client_id", owner).Str("error", err.Error()).Msg("failed to send message")
		WriteError(w, http.StatusServiceUnavailable, "failed to send message")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"status": "ok",
		"id":     id,
	})
}

// HandleMarkRead handles POST /api/messages/read. Every id must name one of
// the client's own messages and be advisor-authored; otherwise nothing is
// written.
func (h *MessagesHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	owner := ownerID(r)

	var req markReadRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "marked": 0})
		return
	}

	msgs, err := h.subscriber.FetchMessages(r.Context(), owner)
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, "failed to load messages")
		return
	}
	own := make(map[string]models.Message, len(msgs))
	for _, m := range msgs {
		own[m.ID] = m
	}
	for _, id := range req.IDs {
		m, ok := own[id]
		if !ok {
			WriteError(w, http.StatusNotFound, "message not found: "+id)
			return
		}
		if !m.FromAdvisor() {
			WriteError(w, http.StatusBadRequest, "only advisor messages can be marked read: "+id)
			return
		}
	}

	if err := h.portal.MarkMessagesRead(r.Context(), req.IDs); err != nil {
		h.logger.Error().Str("client_id", owner).Str("error", err.Error()).Msg("failed to mark messages read")
		WriteError(w, http.StatusServiceUnavailable, "failed to mark messages read")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "marked": len(req.IDs)})
}
