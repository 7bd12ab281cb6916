package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/metrics"
	"golang.org/x/time/rate"
)

// LimiterStore maintains per-key rate limiters and performs periodic cleanup.
type LimiterStore struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	clients         map[string]*clientEntry
	cleanupInterval time.Duration
	idleAfter       time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore creates a store allowing limitPerMinute events per key with
// the given burst. Keys idle for ten minutes are dropped.
func NewLimiterStore(limitPerMinute int, burst int, cleanupInterval time.Duration) *LimiterStore {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	s := &LimiterStore{
		limit:           rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:           burst,
		clients:         map[string]*clientEntry{},
		cleanupInterval: cleanupInterval,
		idleAfter:       10 * time.Minute,
		stopCh:          make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-s.idleAfter))
		case <-s.stopCh:
			return
		}
	}
}

func (s *LimiterStore) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.clients {
		if v.lastSeen.Before(cutoff) {
			delete(s.clients, k)
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (s *LimiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *LimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.clients[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	limiter := rate.NewLimiter(s.limit, s.burst)
	s.clients[key] = &clientEntry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Allow checks whether an event for the given key is permitted.
func (s *LimiterStore) Allow(key string) bool {
	return s.getLimiter(key).Allow()
}

// RateLimit rejects requests over the per-client budget with 429. Clients
// are keyed by proxies.ClientIP.
func RateLimit(store *LimiterStore, m *metrics.Metrics, proxies *Proxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.Allow("ip:" + proxies.ClientIP(r)) {
				m.RateLimited()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(apperr.HTTPStatus(apperr.ErrRateLimited))
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
