package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/pliu/siso/internal/client"
	"github.com/pliu/siso/internal/models"
)

func (a *app) cmdID() error {
	fmt.Printf("id:     %s\n", a.id.UserID)
	fmt.Printf("short:  %s\n", client.ShortID(a.id.UserID))
	if a.id.DisplayName != "" {
		fmt.Printf("name:   %s\n", a.id.DisplayName)
	}
	fmt.Printf("invite: %s\n", client.InviteLink(a.server, a.id.UserID))
	return nil
}

func (a *app) cmdName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := a.api.SetDisplayName(ctx, a.id.UserID, name); err != nil {
		return err
	}
	a.id.DisplayName = name
	return a.id.save(a.idPath)
}

func (a *app) cmdChat(ctx context.Context, input string) error {
	chatID, err := a.session.OpenChat(ctx, input)
	if err != nil {
		return err
	}
	fmt.Println(chatID)
	return nil
}

func (a *app) cmdChats(ctx context.Context) error {
	chats, err := a.api.ListChats(ctx, a.id.UserID)
	if err != nil {
		return err
	}
	names, err := a.peerNames(ctx, chats)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAT\tPEER\tNAME\tCREATED")
	for _, c := range chats {
		peer := c.Peer(a.id.UserID)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, client.ShortID(peer), a.chatName(c, names), c.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

// chatName prefers a local alias, then the peer's display name.
func (a *app) chatName(c models.Chat, names map[string]string) string {
	if alias := strings.TrimSpace(a.id.Aliases[c.ID]); alias != "" {
		return alias
	}
	if n := names[c.Peer(a.id.UserID)]; n != "" {
		return n
	}
	return "-"
}

func (a *app) peerNames(ctx context.Context, chats []models.Chat) (map[string]string, error) {
	names := make(map[string]string, len(chats))
	if len(chats) == 0 {
		return names, nil
	}
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.Peer(a.id.UserID))
	}
	users, err := a.api.Profiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}

func (a *app) findChat(ctx context.Context, chatID string) (models.Chat, error) {
	chats, err := a.api.ListChats(ctx, a.id.UserID)
	if err != nil {
		return models.Chat{}, err
	}
	for _, c := range chats {
		if c.ID == chatID || strings.HasPrefix(c.ID, chatID) {
			return c, nil
		}
	}
	return models.Chat{}, fmt.Errorf("no chat %q, run sisoctl chats", chatID)
}

func (a *app) cmdSend(ctx context.Context, chatID, text string) error {
	return a.send(ctx, chatID, models.Text(strings.TrimSpace(text)))
}

func (a *app) cmdSendImage(ctx context.Context, chatID, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > client.MaxImageBytes {
		return client.ErrImageTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	return a.send(ctx, chatID, models.Image(data, mimeType))
}

func (a *app) send(ctx context.Context, chatID string, content models.Content) error {
	c, err := a.findChat(ctx, chatID)
	if err != nil {
		return err
	}
	p, err := a.session.Send(ctx, c.ID, c.Peer(a.id.UserID), content)
	if err != nil {
		return err
	}
	fmt.Println(p.ID)
	return nil
}

func (a *app) cmdWatch(ctx context.Context, chatID string) error {
	c, err := a.findChat(ctx, chatID)
	if err != nil {
		return err
	}
	a.session.SetActive(c.ID)
	a.session.OnSeen = func(p client.Pending) {
		fmt.Printf("seen: %s\n", p.ID)
	}

	poller := client.NewPoller(a.session, a.v.GetDuration("interval"), a.log)
	var mu sync.Mutex
	printed := make(map[string]bool)
	poller.OnUpdate = func(id string) {
		mu.Lock()
		defer mu.Unlock()
		for _, item := range a.session.Messages(id) {
			if item.Mine || printed[item.ID] {
				continue
			}
			printed[item.ID] = true
			a.printIncoming(ctx, id, item)
		}
	}

	if events, err := a.api.Subscribe(ctx, a.id.UserID); err != nil {
		a.log.WithError(err).Warn("notifications unavailable, polling only")
	} else {
		go poller.Follow(ctx, events)
	}

	fmt.Fprintf(os.Stderr, "watching %s, ctrl-c to stop\n", c.ID)
	poller.Run(ctx)
	return nil
}

func (a *app) printIncoming(ctx context.Context, chatID string, item client.Item) {
	stamp := item.CreatedAt.Local().Format(time.TimeOnly)
	if !a.viewOnce {
		fmt.Printf("%s  new %s message %s (run with --view to open)\n", stamp, item.Kind, item.ID)
		return
	}
	msg, err := a.session.View(ctx, chatID, item.ID)
	if err != nil {
		a.log.WithError(err).WithField("message", item.ID).Warn("view failed")
		return
	}
	if msg.Kind == models.KindImage {
		fmt.Printf("%s  [image, %d bytes of data uri]\n", stamp, len(msg.Content))
		return
	}
	fmt.Printf("%s  %s\n", stamp, msg.Content)
}

func (a *app) cmdAlias(ctx context.Context, chatID, alias string) error {
	c, err := a.findChat(ctx, chatID)
	if err != nil {
		return err
	}
	alias = strings.TrimSpace(alias)
	if a.id.Aliases == nil {
		a.id.Aliases = make(map[string]string)
	}
	if alias == "" {
		delete(a.id.Aliases, c.ID)
	} else {
		a.id.Aliases[c.ID] = alias
	}
	return a.id.save(a.idPath)
}

func (a *app) cmdFind(ctx context.Context, q string) error {
	users, err := a.api.FindUsers(ctx, q)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Printf("%s  %s  %s\n", client.ShortID(u.ID), u.DisplayName, client.InviteLink(a.server, u.ID))
	}
	return nil
}

func (a *app) cmdDelete(ctx context.Context, chatID string) error {
	c, err := a.findChat(ctx, chatID)
	if err != nil {
		return err
	}
	if err := a.session.DeleteChat(ctx, c.ID); err != nil {
		return err
	}
	if _, ok := a.id.Aliases[c.ID]; ok {
		delete(a.id.Aliases, c.ID)
		return a.id.save(a.idPath)
	}
	return nil
}

func (a *app) cmdStats(ctx context.Context) error {
	st, err := a.api.Stats(ctx, a.v.GetString("admin-code"), a.id.UserID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "users\t%d\n", st.UserCount)
	fmt.Fprintf(w, "chats\t%d\n", st.ChatCount)
	fmt.Fprintf(w, "messages\t%d\n", st.MessageCount)
	fmt.Fprintf(w, "last 24h\t%d\n", st.MessagesLast24h)
	fmt.Fprintf(w, "last 7d\t%d\n", st.MessagesLast7d)
	if st.MySentMessages != nil {
		fmt.Fprintf(w, "sent by me\t%d\n", *st.MySentMessages)
	}
	return w.Flush()
}
