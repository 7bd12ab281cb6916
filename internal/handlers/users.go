package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/chat"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	Service *chat.Service
	Log     logrus.FieldLogger
}

type ProfileRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func (h *UserHandler) SetProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	if err := h.Service.SetDisplayName(r.Context(), req.UserID, req.DisplayName); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeOK(w)
}

// GetProfiles resolves a comma separated ids list. Unknown ids are omitted;
// a missing ids parameter is a bad request.
func (h *UserHandler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, logger(h.Log), fmt.Errorf("%w: ids is required", apperr.ErrInvalidArgument))
		return
	}
	ids := strings.Split(raw, ",")
	users, err := h.Service.Profiles(r.Context(), ids)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

func (h *UserHandler) Find(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.FindUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}
