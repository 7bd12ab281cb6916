package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/models"
)

func newChat(id, a, b string, at time.Time) models.Chat {
	return models.Chat{ID: id, UserAID: a, UserBID: b, CreatedAt: at}
}

func TestEnsureChatBothOrders(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()
	now := time.Now()

	c1, created, err := testStore.EnsureChat(ctx, newChat("c1", "aaa111", "bbb222", now))
	if err != nil {
		t.Fatalf("EnsureChat: %v", err)
	}
	if !created || c1.ID != "c1" {
		t.Errorf("Expected new chat c1, got %+v created=%v", c1, created)
	}

	c2, created, err := testStore.EnsureChat(ctx, newChat("c2", "bbb222", "aaa111", now))
	if err != nil {
		t.Fatalf("EnsureChat reversed: %v", err)
	}
	if created || c2.ID != "c1" {
		t.Errorf("Expected existing chat c1, got %+v created=%v", c2, created)
	}
	if c2.UserAID != "aaa111" {
		t.Errorf("Expected original participant order kept, got %+v", c2)
	}
}

func TestEnsureChatConcurrent(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "x", "y"
			if i%2 == 1 {
				a, b = b, a
			}
			c, _, err := testStore.EnsureChat(ctx, newChat("chat-"+string(rune('0'+i)), a, b, time.Now()))
			if err != nil {
				t.Errorf("EnsureChat: %v", err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("Expected one chat id, got %v", ids)
		}
	}
	var n int
	testStore.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&n)
	if n != 1 {
		t.Errorf("Expected 1 chat row, got %d", n)
	}
}

func TestGetChatNotFound(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	_, err := testStore.GetChat(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListChatsNewestFirst(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	testStore.EnsureChat(ctx, newChat("old", "me", "p1", base))
	testStore.EnsureChat(ctx, newChat("new", "p2", "me", base.Add(time.Hour)))
	testStore.EnsureChat(ctx, newChat("other", "p1", "p2", base))

	chats, err := testStore.ListChats(ctx, "me")
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("Expected 2 chats, got %d", len(chats))
	}
	if chats[0].ID != "new" || chats[1].ID != "old" {
		t.Errorf("Expected newest first, got %s, %s", chats[0].ID, chats[1].ID)
	}
}

func TestDeleteChat(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()
	now := time.Now()

	testStore.EnsureChat(ctx, newChat("c1", "a", "b", now))
	testStore.EnsureChat(ctx, newChat("c2", "a", "c", now))
	testStore.InsertMessage(ctx, sealed("m1", "c1", "a", "b", now))
	testStore.InsertMessage(ctx, sealed("m2", "c1", "b", "a", now))
	testStore.InsertMessage(ctx, sealed("m3", "c2", "a", "c", now))

	if err := testStore.DeleteChat(ctx, "c1"); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}

	if _, err := testStore.GetChat(ctx, "c1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected chat to be gone, got %v", err)
	}
	var n int
	testStore.db.QueryRow("SELECT COUNT(*) FROM messages WHERE chat_id = 'c1'").Scan(&n)
	if n != 0 {
		t.Errorf("Expected messages to be deleted, %d left", n)
	}
	inbox, _ := testStore.ListInbox(ctx, "c2", "c")
	if len(inbox) != 1 {
		t.Errorf("Expected other chat untouched, got %d messages", len(inbox))
	}

	// Deleting again is harmless.
	if err := testStore.DeleteChat(ctx, "c1"); err != nil {
		t.Errorf("Second DeleteChat: %v", err)
	}
}
