package handlers

import (
	"net/http"

	"github.com/pliu/siso/internal/chat"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	Service *chat.Service
	Log     logrus.FieldLogger
}

type StatsRequest struct {
	AdminCode string `json:"adminCode"`
	UserID    string `json:"userId"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	stats, err := h.Service.Stats(r.Context(), req.AdminCode, req.UserID)
	if err != nil {
		logger(h.Log).WithField("remote", r.RemoteAddr).Debug("admin stats refused")
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
