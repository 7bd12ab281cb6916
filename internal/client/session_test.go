package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pliu/siso/internal/models"
)

func newPair(t *testing.T, srv *testServer) (alice, bob *Session, chatID string) {
	t.Helper()
	alice = NewSession(NewAPI(srv.URL), "aaa111")
	bob = NewSession(NewAPI(srv.URL), "bbb222")
	chatID, err := alice.OpenChat(context.Background(), srv.URL+"/#bbb222")
	if err != nil {
		t.Fatalf("OpenChat: %v", err)
	}
	bob.SetActive(chatID)
	return alice, bob, chatID
}

func TestSessionViewOnceFlow(t *testing.T) {
	srv := startServer(t, nil)
	alice, bob, chatID := newPair(t, srv)
	ctx := context.Background()

	var seenMu sync.Mutex
	var seen []Pending
	alice.OnSeen = func(p Pending) {
		seenMu.Lock()
		seen = append(seen, p)
		seenMu.Unlock()
	}

	sent, err := alice.Send(ctx, chatID, "bbb222", models.Text("hello"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.ID == "" || sent.Token == "" {
		t.Fatalf("Expected acknowledged pending entry, got %+v", sent)
	}

	// Still unviewed: the optimistic entry survives a refresh.
	if err := alice.Refresh(ctx, chatID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	items := alice.Messages(chatID)
	if len(items) != 1 || !items[0].Mine || items[0].Content != "hello" {
		t.Fatalf("Unexpected sender view %+v", items)
	}

	if err := bob.Refresh(ctx, chatID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	items = bob.Messages(chatID)
	if len(items) != 1 || items[0].Mine || items[0].ID != sent.ID {
		t.Fatalf("Unexpected receiver view %+v", items)
	}

	msg, err := bob.View(ctx, chatID, sent.ID)
	if err != nil || msg.Content != "hello" {
		t.Fatalf("View = %+v, %v", msg, err)
	}
	if len(bob.Messages(chatID)) != 0 {
		t.Errorf("Viewed message should leave the session")
	}
	if _, err := bob.View(ctx, chatID, sent.ID); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("Second view should be unknown locally, got %v", err)
	}
	bob.Refresh(ctx, chatID)
	if len(bob.Messages(chatID)) != 0 {
		t.Errorf("Viewed message came back after refresh")
	}

	if err := alice.Refresh(ctx, chatID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(alice.Messages(chatID)) != 0 {
		t.Errorf("Seen message should be dropped from sender view")
	}
	seenMu.Lock()
	defer seenMu.Unlock()
	if len(seen) != 1 || seen[0].ID != sent.ID {
		t.Errorf("OnSeen = %+v", seen)
	}
}

func TestSessionViewFailureStillRemovesMessage(t *testing.T) {
	srv := startServer(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/view") {
				http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	alice, bob, chatID := newPair(t, srv)
	bob.Log = quietLogger()
	ctx := context.Background()

	sent, err := alice.Send(ctx, chatID, "bbb222", models.Text("hello"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := bob.Refresh(ctx, chatID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	msg, err := bob.View(ctx, chatID, sent.ID)
	if err != nil {
		t.Fatalf("View should not block on a server failure, got %v", err)
	}
	if msg.Content != "hello" {
		t.Errorf("View returned %+v", msg)
	}
	if items := bob.Messages(chatID); len(items) != 0 {
		t.Errorf("Message should leave the local list, got %+v", items)
	}

	// The row is still on the server but stays hidden locally.
	if err := bob.Refresh(ctx, chatID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if items := bob.Messages(chatID); len(items) != 0 {
		t.Errorf("Viewed message came back after refresh: %+v", items)
	}
}

func TestSessionSendFailureRemovesOptimisticEntry(t *testing.T) {
	srv := startServer(t, nil)
	s := NewSession(NewAPI(srv.URL), "aaa111")

	_, err := s.Send(context.Background(), "no-such-chat", "bbb222", models.Text("x"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("Expected 404, got %v", err)
	}
	if items := s.Messages("no-such-chat"); len(items) != 0 {
		t.Errorf("Failed send should not stay on screen: %+v", items)
	}
}

func TestSessionSendValidation(t *testing.T) {
	s := NewSession(NewAPI("http://127.0.0.1:0"), "me")
	ctx := context.Background()

	if _, err := s.Send(ctx, "c", "p", models.Text("")); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
	big := models.Image(make([]byte, MaxImageBytes+1), "image/png")
	if _, err := s.Send(ctx, "c", "p", big); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Expected ErrImageTooLarge, got %v", err)
	}
	if _, err := s.OpenChat(ctx, "https://x/#me"); !errors.Is(err, ErrSelfChat) {
		t.Errorf("Expected ErrSelfChat, got %v", err)
	}
}

func TestSessionPendingExpires(t *testing.T) {
	srv := startServer(t, nil)
	alice, _, chatID := newPair(t, srv)
	ctx := context.Background()

	if _, err := alice.Send(ctx, chatID, "bbb222", models.Text("old")); err != nil {
		t.Fatal(err)
	}
	alice.now = func() time.Time { return time.Now().Add(DefaultPendingTTL + time.Minute) }
	if err := alice.Refresh(ctx, chatID); err != nil {
		t.Fatal(err)
	}
	if items := alice.Messages(chatID); len(items) != 0 {
		t.Errorf("Expected expired entry dropped, got %+v", items)
	}
}

func TestSessionDismissAndDelete(t *testing.T) {
	srv := startServer(t, nil)
	alice, bob, chatID := newPair(t, srv)
	ctx := context.Background()

	p, _ := alice.Send(ctx, chatID, "bbb222", models.Text("oops"))
	if !alice.Dismiss(chatID, p.Token) || alice.Dismiss(chatID, p.Token) {
		t.Errorf("Dismiss should succeed exactly once")
	}

	if err := bob.DeleteChat(ctx, chatID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	if active, _ := bob.Active(); active != "" {
		t.Errorf("Deleted chat should not stay active, got %q", active)
	}
	if err := alice.DeleteChat(ctx, chatID); err == nil {
		t.Errorf("Deleting a gone chat should fail")
	}
}

func TestRefreshSkipsOverlappingPoll(t *testing.T) {
	s := NewSession(NewAPI("http://127.0.0.1:0"), "me")
	s.mu.Lock()
	s.chat("c1").state = StatePolling
	s.mu.Unlock()

	if err := s.Refresh(context.Background(), "c1"); !errors.Is(err, ErrPollInFlight) {
		t.Errorf("Expected ErrPollInFlight, got %v", err)
	}
	if s.State("c1") != StatePolling {
		t.Errorf("Skipped refresh must not touch state")
	}
}

func TestRefreshDiscardsStaleResult(t *testing.T) {
	var session atomic.Pointer[Session]
	srv := startServer(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The user switches chats while the inbox request is in flight.
			if r.URL.Path == "/api/messages" && r.Method == http.MethodGet {
				if s := session.Load(); s != nil {
					s.SetActive("other-chat")
				}
			}
			next.ServeHTTP(w, r)
		})
	})
	alice, _, chatID := newPair(t, srv)
	session.Store(alice)
	ctx := context.Background()

	if err := alice.Refresh(ctx, chatID); !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale, got %v", err)
	}
	if alice.State(chatID) != StateIdle {
		t.Errorf("Discarded poll must release the chat, state = %v", alice.State(chatID))
	}
}

func TestRefreshErrorReleasesChat(t *testing.T) {
	s := NewSession(NewAPI("http://127.0.0.1:1"), "me")
	s.SetActive("c1")
	if err := s.Refresh(context.Background(), "c1"); err == nil {
		t.Fatal("Expected a network error")
	}
	if s.State("c1") != StateIdle {
		t.Errorf("Failed poll must release the chat")
	}
}
