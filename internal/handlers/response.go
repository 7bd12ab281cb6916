package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pliu/siso/internal/apperr"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds JSON request bodies. Image messages travel inline as
// data URIs, so the bound is generous.
const maxBodyBytes = 16 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeError maps err onto a status code and writes {"error": ...}. Server
// errors are logged with their full chain and answered with a generic text.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}

func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == io.EOF {
		return fmt.Errorf("%w: request body is empty", apperr.ErrInvalidArgument)
	}
	if err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", apperr.ErrInvalidArgument, err)
	}
	return nil
}

func logger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}
