package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pliu/siso/internal/chat"
	"github.com/pliu/siso/internal/models"
	"github.com/sirupsen/logrus"
)

type MessageHandler struct {
	Service *chat.Service
	Log     logrus.FieldLogger
}

type SendMessageRequest struct {
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	// Text that merely looks like an image URI is still text.
	content, err := models.ParseContent(req.Content)
	if err != nil {
		content = models.Text(req.Content)
	}

	id, err := h.Service.Send(r.Context(), chat.SendRequest{
		ChatID:     req.ChatID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    content,
	})
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

// Inbox returns the decrypted messages waiting for userId in chatId.
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := h.Service.Inbox(r.Context(), q.Get("chatId"), q.Get("userId"))
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

// Outbox lists the ids of messages userId sent that are still unviewed.
func (h *MessageHandler) Outbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pending, err := h.Service.Outbox(r.Context(), q.Get("chatId"), q.Get("userId"))
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(pending))
}

func (h *MessageHandler) View(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.View(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeOK(w)
}
