package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Event is a change hint pushed by the server. It carries no content.
type Event struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
}

// Subscribe opens the notification socket for userID. The channel is
// closed when the connection drops or ctx is done.
func (a *API) Subscribe(ctx context.Context, userID string) (<-chan Event, error) {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	u.RawQuery = url.Values{"userId": {userID}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial notifications: %w", err)
	}

	events := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
