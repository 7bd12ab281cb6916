package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pliu/siso/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxImageBytes caps images before they are sent. The server does not
// enforce a limit.
const MaxImageBytes = 2 << 20

// DefaultPendingTTL is how long an unviewed sent message stays on screen.
const DefaultPendingTTL = 24 * time.Hour

var (
	ErrPollInFlight   = errors.New("a poll for this chat is already running")
	ErrStale          = errors.New("poll result discarded after chat switch")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrImageTooLarge  = fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	ErrUnknownMessage = errors.New("no such message in this chat")
	ErrSelfChat       = errors.New("cannot start a chat with yourself")
)

// ChatState is where a chat is in its poll cycle.
type ChatState int

const (
	StateIdle ChatState = iota
	StatePolling
	StateReconciling
)

func (s ChatState) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateReconciling:
		return "reconciling"
	default:
		return "idle"
	}
}

// Pending is a message sent from this device that the peer has not viewed.
// ID stays empty until the server acknowledged the send.
type Pending struct {
	Token      string
	ID         string
	ChatID     string
	ReceiverID string
	Content    models.Content
	CreatedAt  time.Time

	ack uint64
}

// Item is one line of a chat as it should be shown.
type Item struct {
	Mine      bool
	Token     string
	ID        string
	Kind      models.ContentKind
	Content   string
	CreatedAt time.Time
}

type chatView struct {
	state    ChatState
	received []models.Message
	pending  []*Pending
}

// Session holds the client side view of every chat: confirmed messages
// from the server and optimistic ones still waiting to be viewed. All
// methods are safe for concurrent use.
type Session struct {
	API        *API
	UserID     string
	PendingTTL time.Duration

	// OnSeen is called for each sent message the peer has viewed.
	OnSeen func(Pending)

	// Log receives failures that do not interrupt the user.
	Log logrus.FieldLogger

	now func() time.Time

	mu     sync.Mutex
	active string
	gen    uint64
	ackSeq uint64
	chats  map[string]*chatView
	viewed map[string]string // message id -> chat id
}

func NewSession(api *API, userID string) *Session {
	return &Session{
		API:        api,
		UserID:     userID,
		PendingTTL: DefaultPendingTTL,
		Log:        logrus.StandardLogger(),
		now:        time.Now,
		chats:      make(map[string]*chatView),
		viewed:     make(map[string]string),
	}
}

// chat must be called with s.mu held.
func (s *Session) chat(chatID string) *chatView {
	cv, ok := s.chats[chatID]
	if !ok {
		cv = &chatView{}
		s.chats[chatID] = cv
	}
	return cv
}

// SetActive switches the active chat. Polls started before the switch are
// discarded when they complete.
func (s *Session) SetActive(chatID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = chatID
	s.gen++
	return s.gen
}

// Active returns the active chat and the current generation.
func (s *Session) Active() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.gen
}

// OpenChat resolves an id or invite link, ensures the chat on the server
// and makes it active.
func (s *Session) OpenChat(ctx context.Context, input string) (string, error) {
	other, err := ExtractUserID(input)
	if err != nil {
		return "", err
	}
	if other == s.UserID {
		return "", ErrSelfChat
	}
	chatID, err := s.API.EnsureChat(ctx, s.UserID, other)
	if err != nil {
		return "", err
	}
	s.SetActive(chatID)
	return chatID, nil
}

// Send shows the message optimistically and posts it. On failure the
// optimistic entry is removed and the error returned.
func (s *Session) Send(ctx context.Context, chatID, receiverID string, content models.Content) (Pending, error) {
	if content.IsEmpty() {
		return Pending{}, ErrEmptyMessage
	}
	if content.Kind == models.KindImage && len(content.Data) > MaxImageBytes {
		return Pending{}, ErrImageTooLarge
	}

	p := &Pending{
		Token:      uuid.NewString(),
		ChatID:     chatID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	s.mu.Lock()
	cv := s.chat(chatID)
	cv.pending = append(cv.pending, p)
	s.mu.Unlock()

	id, err := s.API.Send(ctx, chatID, s.UserID, receiverID, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.dropPending(chatID, p.Token)
		return Pending{}, err
	}
	s.ackSeq++
	p.ID = id
	p.ack = s.ackSeq
	return *p, nil
}

// dropPending must be called with s.mu held.
func (s *Session) dropPending(chatID, token string) bool {
	cv, ok := s.chats[chatID]
	if !ok {
		return false
	}
	for i, p := range cv.pending {
		if p.Token == token {
			cv.pending = append(cv.pending[:i], cv.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Dismiss removes an optimistic entry without contacting the server.
func (s *Session) Dismiss(chatID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropPending(chatID, token)
}

// Refresh polls inbox and outbox for chatID and reconciles local state.
// It returns ErrPollInFlight when another poll for the chat is running and
// ErrStale when the active chat changed before the result arrived.
func (s *Session) Refresh(ctx context.Context, chatID string) error {
	s.mu.Lock()
	cv := s.chat(chatID)
	if cv.state != StateIdle {
		s.mu.Unlock()
		return ErrPollInFlight
	}
	cv.state = StatePolling
	gen, ackMark := s.gen, s.ackSeq
	s.mu.Unlock()

	inbox, err := s.API.Inbox(ctx, chatID, s.UserID)
	var outbox []models.PendingMessage
	if err == nil {
		outbox, err = s.API.Outbox(ctx, chatID, s.UserID)
	}

	s.mu.Lock()
	if s.chats[chatID] != cv {
		s.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		cv.state = StateIdle
		s.mu.Unlock()
		return err
	}
	if s.gen != gen {
		cv.state = StateIdle
		s.mu.Unlock()
		return ErrStale
	}
	cv.state = StateReconciling
	seen := s.reconcile(chatID, cv, inbox, outbox, ackMark)
	cv.state = StateIdle
	onSeen := s.OnSeen
	s.mu.Unlock()

	if onSeen != nil {
		for _, p := range seen {
			onSeen(p)
		}
	}
	return nil
}

// reconcile must be called with s.mu held. Pending entries acknowledged
// after ackMark are newer than the fetched outbox and are left alone.
func (s *Session) reconcile(chatID string, cv *chatView, inbox []models.Message, outbox []models.PendingMessage, ackMark uint64) []Pending {
	inboxIDs := make(map[string]bool, len(inbox))
	received := make([]models.Message, 0, len(inbox))
	for _, m := range inbox {
		inboxIDs[m.ID] = true
		if _, done := s.viewed[m.ID]; done {
			continue
		}
		received = append(received, m)
	}
	cv.received = received
	for id, c := range s.viewed {
		if c == chatID && !inboxIDs[id] {
			delete(s.viewed, id)
		}
	}

	unviewed := make(map[string]bool, len(outbox))
	for _, m := range outbox {
		unviewed[m.ID] = true
	}
	cutoff := s.now().Add(-s.PendingTTL)

	var seen []Pending
	keep := make([]*Pending, 0, len(cv.pending))
	for _, p := range cv.pending {
		switch {
		case p.ID != "" && inboxIDs[p.ID]:
		case p.CreatedAt.Before(cutoff):
		case p.ID != "" && p.ack <= ackMark && !unviewed[p.ID]:
			seen = append(seen, *p)
		default:
			keep = append(keep, p)
		}
	}
	cv.pending = keep
	return seen
}

// View consumes a received message. The server deletes it and it leaves
// local state; the returned message is the only copy. A failed server call
// is logged and the message still leaves local state.
func (s *Session) View(ctx context.Context, chatID, messageID string) (models.Message, error) {
	s.mu.Lock()
	msg, ok := s.findReceived(chatID, messageID)
	s.mu.Unlock()
	if !ok {
		return models.Message{}, ErrUnknownMessage
	}

	if err := s.API.View(ctx, messageID); err != nil {
		s.Log.WithError(err).WithField("message", messageID).Warn("view not confirmed by server")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewed[messageID] = chatID
	if cv, ok := s.chats[chatID]; ok {
		for i, m := range cv.received {
			if m.ID == messageID {
				cv.received = append(cv.received[:i], cv.received[i+1:]...)
				break
			}
		}
	}
	return msg, nil
}

func (s *Session) findReceived(chatID, messageID string) (models.Message, bool) {
	cv, ok := s.chats[chatID]
	if !ok {
		return models.Message{}, false
	}
	for _, m := range cv.received {
		if m.ID == messageID {
			return m, true
		}
	}
	return models.Message{}, false
}

// DeleteChat deletes the chat on the server and forgets it locally.
func (s *Session) DeleteChat(ctx context.Context, chatID string) error {
	if err := s.API.DeleteChat(ctx, chatID, s.UserID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	for id, c := range s.viewed {
		if c == chatID {
			delete(s.viewed, id)
		}
	}
	if s.active == chatID {
		s.active = ""
		s.gen++
	}
	return nil
}

// State reports the poll state of chatID.
func (s *Session) State(chatID string) ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cv, ok := s.chats[chatID]; ok {
		return cv.state
	}
	return StateIdle
}

// Messages returns received and pending messages of chatID ordered by
// creation time.
func (s *Session) Messages(chatID string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	items := make([]Item, 0, len(cv.received)+len(cv.pending))
	for _, m := range cv.received {
		items = append(items, Item{ID: m.ID, Kind: m.Kind, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	for _, p := range cv.pending {
		items = append(items, Item{
			Mine:      true,
			Token:     p.Token,
			ID:        p.ID,
			Kind:      p.Content.Kind,
			Content:   p.Content.String(),
			CreatedAt: p.CreatedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items
}
