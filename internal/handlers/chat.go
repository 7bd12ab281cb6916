package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pliu/siso/internal/chat"
	"github.com/sirupsen/logrus"
)

type ChatHandler struct {
	Service *chat.Service
	Log     logrus.FieldLogger
}

type CreateChatRequest struct {
	MyUserID    string `json:"myUserId"`
	OtherUserID string `json:"otherUserId"`
}

// CreateChat finds or creates the chat between the two identities.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}

	c, err := h.Service.EnsureChat(r.Context(), req.MyUserID, req.OtherUserID)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"chatId": c.ID})
}

func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Service.ListChats(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(chats))
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	if err := h.Service.DeleteChat(r.Context(), chatID, r.URL.Query().Get("userId")); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeOK(w)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
