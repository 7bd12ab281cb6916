package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pliu/siso/internal/models"
)

func TestSetProfileAndLookup(t *testing.T) {
	svc := newTestService(t)
	handler := &UserHandler{Service: svc}

	req, _ := http.NewRequest("POST", "/api/users/profile", jsonBody(t, ProfileRequest{UserID: "u1", DisplayName: " Alice "}))
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.SetProfile).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("set profile: got %v", rr.Code)
	}

	req, _ = http.NewRequest("POST", "/api/users/profile", jsonBody(t, ProfileRequest{UserID: "u1", DisplayName: "  "}))
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.SetProfile).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank name: got %v want %v", rr.Code, http.StatusBadRequest)
	}

	req, _ = http.NewRequest("GET", "/api/users?ids=u1,ghost,,u1", nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.GetProfiles).ServeHTTP(rr, req)
	var users []models.User
	json.NewDecoder(rr.Body).Decode(&users)
	if len(users) != 1 || users[0].ID != "u1" || users[0].DisplayName != "Alice" {
		t.Errorf("Unexpected profiles %+v", users)
	}
}

func TestGetProfilesRequiresIDs(t *testing.T) {
	handler := &UserHandler{Service: newTestService(t)}

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"?ids=", http.StatusBadRequest},
		{"?ids=,", http.StatusOK},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest("GET", "/api/users"+tt.query, nil)
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.GetProfiles).ServeHTTP(rr, req)
		if rr.Code != tt.want {
			t.Errorf("%q: got %v want %v", tt.query, rr.Code, tt.want)
		}
		if tt.want == http.StatusOK && strings.TrimSpace(rr.Body.String()) != "[]" {
			t.Errorf("%q: expected empty list, got %s", tt.query, rr.Body.String())
		}
	}
}

func TestFindUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.SetDisplayName(ctx, "1", "Alice")
	svc.SetDisplayName(ctx, "2", "Natalia")
	svc.SetDisplayName(ctx, "3", "Bob")
	handler := &UserHandler{Service: svc}

	req, _ := http.NewRequest("GET", "/api/users/find?q=ALI", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Find).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %v", rr.Code)
	}
	var users []models.User
	json.NewDecoder(rr.Body).Decode(&users)
	if len(users) != 2 {
		t.Errorf("Expected Alice and Natalia, got %+v", users)
	}
	for _, u := range users {
		if u.DisplayName == "Bob" {
			t.Errorf("Bob should not match")
		}
	}

	req, _ = http.NewRequest("GET", "/api/users/find?q=", nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.Find).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty query: got %v want %v", rr.Code, http.StatusBadRequest)
	}
}
