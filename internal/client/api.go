// Package client talks to a siso server: a typed API, the device identity
// helpers, and the polling session that reconciles local state with the
// server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pliu/siso/internal/models"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// API is a thin JSON client for the /api endpoints.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := a.BaseURL + "/api" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// EnsureChat returns the id of the chat between the two users.
func (a *API) EnsureChat(ctx context.Context, myUserID, otherUserID string) (string, error) {
	var out struct {
		ChatID string `json:"chatId"`
	}
	err := a.do(ctx, http.MethodPost, "/chats", nil,
		map[string]string{"myUserId": myUserID, "otherUserId": otherUserID}, &out)
	return out.ChatID, err
}

func (a *API) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	var out []models.Chat
	err := a.do(ctx, http.MethodGet, "/chats", url.Values{"userId": {userID}}, nil, &out)
	return out, err
}

func (a *API) DeleteChat(ctx context.Context, chatID, userID string) error {
	return a.do(ctx, http.MethodDelete, "/chats/"+url.PathEscape(chatID), url.Values{"userId": {userID}}, nil, nil)
}

// Send posts a message and returns the server-assigned id.
func (a *API) Send(ctx context.Context, chatID, senderID, receiverID string, content models.Content) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := a.do(ctx, http.MethodPost, "/messages", nil, map[string]string{
		"chatId":     chatID,
		"senderId":   senderID,
		"receiverId": receiverID,
		"content":    content.String(),
	}, &out)
	return out.ID, err
}

func (a *API) Inbox(ctx context.Context, chatID, userID string) ([]models.Message, error) {
	var out []models.Message
	err := a.do(ctx, http.MethodGet, "/messages", url.Values{"chatId": {chatID}, "userId": {userID}}, nil, &out)
	return out, err
}

func (a *API) Outbox(ctx context.Context, chatID, userID string) ([]models.PendingMessage, error) {
	var out []models.PendingMessage
	err := a.do(ctx, http.MethodGet, "/messages/outbox", url.Values{"chatId": {chatID}, "userId": {userID}}, nil, &out)
	return out, err
}

// View consumes a message on the server.
func (a *API) View(ctx context.Context, messageID string) error {
	return a.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/view", nil, struct{}{}, nil)
}

func (a *API) SetDisplayName(ctx context.Context, userID, displayName string) error {
	return a.do(ctx, http.MethodPost, "/users/profile", nil,
		map[string]string{"userId": userID, "displayName": displayName}, nil)
}

func (a *API) Profiles(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.User
	err := a.do(ctx, http.MethodGet, "/users", url.Values{"ids": {strings.Join(ids, ",")}}, nil, &out)
	return out, err
}

func (a *API) FindUsers(ctx context.Context, q string) ([]models.User, error) {
	var out []models.User
	err := a.do(ctx, http.MethodGet, "/users/find", url.Values{"q": {q}}, nil, &out)
	return out, err
}

func (a *API) Stats(ctx context.Context, adminCode, userID string) (models.Stats, error) {
	var out models.Stats
	err := a.do(ctx, http.MethodPost, "/admin/stats", nil,
		map[string]string{"adminCode": adminCode, "userId": userID}, &out)
	return out, err
}
