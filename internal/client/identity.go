package client

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNoUserID is returned when an invite or id input is empty.
var ErrNoUserID = errors.New("no user id in input")

// NewUserID returns a fresh random device identity.
func NewUserID() string {
	return uuid.NewString()
}

// ShortID is the 8 character form shown next to names.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// InviteLink builds the shareable link for id on the server at base.
func InviteLink(base, id string) string {
	return strings.TrimRight(base, "/") + "/#" + id
}

// ExtractUserID accepts either a bare id or an invite link and returns the id.
func ExtractUserID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrNoUserID
	}
	if strings.ContainsAny(s, " \t\r\n/") {
		return "", errors.New("user id contains invalid characters")
	}
	return s, nil
}
