package client

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// DefaultPollInterval matches the web client.
const DefaultPollInterval = 4 * time.Second

// Poller refreshes the active chat of a Session on a ticker. A tick that
// finds a poll for the same chat still running is skipped.
type Poller struct {
	Session  *Session
	Interval time.Duration
	Log      logrus.FieldLogger

	// OnUpdate runs after each successful refresh.
	OnUpdate func(chatID string)

	kick chan struct{}
}

func NewPoller(s *Session, interval time.Duration, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Poller{Session: s, Interval: interval, Log: log, kick: make(chan struct{}, 1)}
}

// Kick requests an immediate poll. It never blocks.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run polls until ctx is done and waits for in-flight polls to return.
func (p *Poller) Run(ctx context.Context) {
	var wg conc.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.pollActive(ctx, &wg)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}
		p.pollActive(ctx, &wg)
	}
}

func (p *Poller) pollActive(ctx context.Context, wg *conc.WaitGroup) {
	chatID, _ := p.Session.Active()
	if chatID == "" {
		return
	}
	wg.Go(func() { p.poll(ctx, chatID) })
}

func (p *Poller) poll(ctx context.Context, chatID string) {
	err := p.Session.Refresh(ctx, chatID)
	log := p.Log.WithField("chat", chatID)
	switch {
	case err == nil:
		if p.OnUpdate != nil {
			p.OnUpdate(chatID)
		}
	case errors.Is(err, ErrPollInFlight):
		log.Debug("poll skipped, previous one still running")
	case errors.Is(err, ErrStale):
		log.Debug("stale poll discarded")
	case ctx.Err() != nil:
	default:
		log.WithError(err).Warn("poll failed, retrying on next tick")
	}
}

// Follow kicks the poller whenever an event for the active chat arrives,
// until events is closed or ctx is done.
func (p *Poller) Follow(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if active, _ := p.Session.Active(); active != "" && active == ev.ChatID {
				p.Kick()
			}
		}
	}
}
