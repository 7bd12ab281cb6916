package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pliu/siso/internal/auth"
	"github.com/pliu/siso/internal/chat"
	"github.com/pliu/siso/internal/codec"
	"github.com/pliu/siso/internal/store/sqlstore"
	"github.com/sirupsen/logrus"
)

func newTestService(t *testing.T) *chat.Service {
	t.Helper()
	store, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	c, err := codec.New("test-passphrase", codec.AES256GCM)
	if err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return chat.New(chat.Config{Store: store, Codec: c, Admin: auth.NewAdminGate("letmein"), Logger: log})
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(body)
}

func TestCreateChat(t *testing.T) {
	svc := newTestService(t)
	handler := &ChatHandler{Service: svc}

	var ids []string
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		req, _ := http.NewRequest("POST", "/api/chats", jsonBody(t, CreateChatRequest{MyUserID: pair[0], OtherUserID: pair[1]}))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.CreateChat).ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
		var resp map[string]string
		json.NewDecoder(rr.Body).Decode(&resp)
		ids = append(ids, resp["chatId"])
	}
	if ids[0] == "" || ids[0] != ids[1] {
		t.Errorf("Expected the same chat id both ways, got %v", ids)
	}
}

func TestCreateChatRejectsSelf(t *testing.T) {
	handler := &ChatHandler{Service: newTestService(t)}

	req, _ := http.NewRequest("POST", "/api/chats", jsonBody(t, CreateChatRequest{MyUserID: "x", OtherUserID: "x"}))
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.CreateChat).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
	}
	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["error"] == "" {
		t.Error("Expected an error message")
	}
}

func TestCreateChatMalformedBody(t *testing.T) {
	handler := &ChatHandler{Service: newTestService(t)}

	for _, body := range []string{"", "{not json"} {
		req, _ := http.NewRequest("POST", "/api/chats", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.CreateChat).ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %v want %v", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestGetChats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.EnsureChat(ctx, "user1", "user2")
	svc.EnsureChat(ctx, "user3", "user4")

	handler := &ChatHandler{Service: svc}

	req, _ := http.NewRequest("GET", "/api/chats?userId=user1", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.GetChats).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	var responseChats []map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&responseChats)
	if len(responseChats) != 1 {
		t.Fatalf("Expected 1 chat, got %d", len(responseChats))
	}
	if responseChats[0]["userAId"] != "user1" || responseChats[0]["userBId"] != "user2" {
		t.Errorf("Unexpected chat %v", responseChats[0])
	}

	req, _ = http.NewRequest("GET", "/api/chats?userId=nobody", nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.GetChats).ServeHTTP(rr, req)
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("Expected an empty JSON array, got %q", body)
	}
}

func TestDeleteChat(t *testing.T) {
	svc := newTestService(t)
	c, _ := svc.EnsureChat(context.Background(), "owner", "peer")
	handler := &ChatHandler{Service: svc}

	tests := []struct {
		name   string
		userID string
		want   int
	}{
		{"outsider", "intruder", http.StatusForbidden},
		{"missing user", "", http.StatusBadRequest},
		{"participant", "peer", http.StatusOK},
		{"already gone", "owner", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("DELETE", "/api/chats/"+c.ID+"?userId="+tt.userID, nil)
			req = mux.SetURLVars(req, map[string]string{"id": c.ID})
			rr := httptest.NewRecorder()
			http.HandlerFunc(handler.DeleteChat).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.want)
			}
		})
	}
}
