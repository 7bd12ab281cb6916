package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/pliu/siso/internal/models"
	"github.com/pliu/siso/internal/store"
)

func sealed(id, chatID, from, to string, at time.Time) models.SealedMessage {
	return models.SealedMessage{
		ID: id, ChatID: chatID, SenderID: from, ReceiverID: to,
		Ciphertext: "Y3Q=", IV: "aXY=", AuthTag: "dGFn", CreatedAt: at,
	}
}

func TestInboxFiltersAndOrders(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	testStore.InsertMessage(ctx, sealed("late", "c1", "a", "b", base.Add(time.Second)))
	testStore.InsertMessage(ctx, sealed("tie1", "c1", "a", "b", base))
	testStore.InsertMessage(ctx, sealed("tie2", "c1", "a", "b", base))
	testStore.InsertMessage(ctx, sealed("to-a", "c1", "b", "a", base))
	testStore.InsertMessage(ctx, sealed("other-chat", "c2", "a", "b", base))

	inbox, err := testStore.ListInbox(ctx, "c1", "b")
	if err != nil {
		t.Fatalf("ListInbox: %v", err)
	}
	var got []string
	for _, m := range inbox {
		got = append(got, m.ID)
	}
	want := []string{"tie1", "tie2", "late"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
	if inbox[0].Ciphertext != "Y3Q=" || inbox[0].IV != "aXY=" || inbox[0].AuthTag != "dGFn" {
		t.Errorf("Sealed fields not preserved: %+v", inbox[0])
	}
	if !inbox[0].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", inbox[0].CreatedAt, base)
	}
}

func TestDeleteMessageIdempotent(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	testStore.InsertMessage(ctx, sealed("m1", "c1", "a", "b", time.Now()))
	if err := testStore.DeleteMessage(ctx, "m1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := testStore.DeleteMessage(ctx, "m1"); err != nil {
		t.Errorf("Second DeleteMessage should succeed, got %v", err)
	}
	inbox, _ := testStore.ListInbox(ctx, "c1", "b")
	if len(inbox) != 0 {
		t.Errorf("Expected empty inbox, got %d", len(inbox))
	}
}

func TestOutbox(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()
	now := time.Now()

	testStore.InsertMessage(ctx, sealed("m1", "c1", "a", "b", now))
	testStore.InsertMessage(ctx, sealed("m2", "c1", "a", "b", now))
	testStore.InsertMessage(ctx, sealed("m3", "c1", "b", "a", now))
	testStore.DeleteMessage(ctx, "m1")

	pending, err := testStore.ListOutbox(ctx, "c1", "a")
	if err != nil {
		t.Fatalf("ListOutbox: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "m2" {
		t.Errorf("Expected only m2 pending, got %+v", pending)
	}
}

func TestDeleteMessagesForChat(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	if err := testStore.DeleteMessagesForChat(ctx, "empty"); err != nil {
		t.Errorf("DeleteMessagesForChat on empty chat: %v", err)
	}
	testStore.InsertMessage(ctx, sealed("m1", "c1", "a", "b", time.Now()))
	if err := testStore.DeleteMessagesForChat(ctx, "c1"); err != nil {
		t.Fatalf("DeleteMessagesForChat: %v", err)
	}
	inbox, _ := testStore.ListInbox(ctx, "c1", "b")
	if len(inbox) != 0 {
		t.Errorf("Expected no messages, got %d", len(inbox))
	}
}

func TestStats(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()
	now := time.Now()

	testStore.UpsertUser(ctx, models.User{ID: "a", DisplayName: "A", UpdatedAt: now})
	testStore.EnsureChat(ctx, newChat("c1", "a", "b", now))
	testStore.InsertMessage(ctx, sealed("m1", "c1", "a", "b", now))
	testStore.InsertMessage(ctx, sealed("m2", "c1", "b", "a", now.Add(-48*time.Hour)))
	testStore.InsertMessage(ctx, sealed("m3", "c1", "a", "b", now.Add(-30*24*time.Hour)))

	q := store.StatsQuery{Since24h: now.Add(-24 * time.Hour), Since7d: now.Add(-7 * 24 * time.Hour)}
	st, err := testStore.Stats(ctx, q)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.UserCount != 1 || st.ChatCount != 1 || st.MessageCount != 3 {
		t.Errorf("Unexpected totals: %+v", st)
	}
	if st.MessagesLast24h != 1 || st.MessagesLast7d != 2 {
		t.Errorf("Unexpected windows: %+v", st)
	}
	if st.MySentMessages != nil {
		t.Errorf("Expected nil MySentMessages without sender")
	}

	q.SenderID = "a"
	st, err = testStore.Stats(ctx, q)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.MySentMessages == nil || *st.MySentMessages != 2 {
		t.Errorf("Expected 2 sent by a, got %v", st.MySentMessages)
	}
}
