package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/chat"
	"github.com/pliu/siso/internal/ws"
	"github.com/sirupsen/logrus"
)

// Routes mounts the JSON API. Limit, when set, wraps the write endpoints.
type Routes struct {
	Service *chat.Service
	Hub     *ws.Hub
	Limit   func(http.Handler) http.Handler
	Log     logrus.FieldLogger
}

// Register adds every endpoint to api, which is expected to be mounted
// under /api.
func (rt Routes) Register(api *mux.Router) {
	chats := &ChatHandler{Service: rt.Service, Log: rt.Log}
	messages := &MessageHandler{Service: rt.Service, Log: rt.Log}
	users := &UserHandler{Service: rt.Service, Log: rt.Log}
	admin := &AdminHandler{Service: rt.Service, Log: rt.Log}

	limited := func(h http.HandlerFunc) http.Handler {
		if rt.Limit == nil {
			return h
		}
		return rt.Limit(h)
	}

	api.Handle("/chats", limited(chats.CreateChat)).Methods("POST")
	api.HandleFunc("/chats", chats.GetChats).Methods("GET")
	api.Handle("/chats/{id}", limited(chats.DeleteChat)).Methods("DELETE")

	api.Handle("/messages", limited(messages.Send)).Methods("POST")
	api.HandleFunc("/messages", messages.Inbox).Methods("GET")
	api.HandleFunc("/messages/outbox", messages.Outbox).Methods("GET")
	api.HandleFunc("/messages/{id}/view", messages.View).Methods("POST")

	api.Handle("/users/profile", limited(users.SetProfile)).Methods("POST")
	api.HandleFunc("/users/find", users.Find).Methods("GET")
	api.HandleFunc("/users", users.GetProfiles).Methods("GET")

	api.Handle("/admin/stats", limited(admin.Stats)).Methods("POST")

	if rt.Hub != nil {
		api.HandleFunc("/ws", rt.serveWs).Methods("GET")
	}
}

func (rt Routes) serveWs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, logger(rt.Log), fmt.Errorf("%w: userId is required", apperr.ErrInvalidArgument))
		return
	}
	ws.ServeWs(rt.Hub, w, r, userID)
}
