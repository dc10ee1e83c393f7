package tgui

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// TokenStore is an in-memory TTL store for large callback payloads.
//
// Telegram limits callback_data to 64 bytes. For flows like "attach this
// photo to a queued post" the photo file id is kept server-side and only a
// short token travels in callback_data.
//
// Tokens are safe for callback payloads (they never contain ':').
type TokenStore struct {
	mu sync.Mutex

	max int
	ttl time.Duration

	m map[string]tokenEntry
}

type tokenEntry struct {
	v   string
	exp time.Time
}

// NewTokenStore creates a TokenStore. Defaults: ttl=15m, max=1000.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		ttl: 15 * time.Minute,
		max: 1000,
		m:   map[string]tokenEntry{},
	}
}

// WithTTL sets the token TTL.
func (s *TokenStore) WithTTL(ttl time.Duration) *TokenStore {
	if ttl > 0 {
		s.mu.Lock()
		s.ttl = ttl
		s.mu.Unlock()
	}
	return s
}

// Put stores v and returns a short token.
func (s *TokenStore) Put(v string) string {
	var buf [6]byte
	_, _ = rand.Read(buf[:])
	tok := "~" + base64.RawURLEncoding.EncodeToString(buf[:])

	now := time.Now()
	s.mu.Lock()
	s.sweepLocked(now)
	s.m[tok] = tokenEntry{v: v, exp: now.Add(s.ttl)}
	if s.max > 0 && len(s.m) > s.max {
		for k := range s.m {
			delete(s.m, k)
			if len(s.m) <= s.max {
				break
			}
		}
	}
	s.mu.Unlock()
	return tok
}

// Get returns the stored value for tok.
func (s *TokenStore) Get(tok string) (string, bool) {
	if tok == "" {
		return "", false
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[tok]
	if !ok || now.After(e.exp) {
		delete(s.m, tok)
		return "", false
	}
	return e.v, true
}

// Take returns the value and invalidates the token (one-shot use).
func (s *TokenStore) Take(tok string) (string, bool) {
	v, ok := s.Get(tok)
	if ok {
		s.mu.Lock()
		delete(s.m, tok)
		s.mu.Unlock()
	}
	return v, ok
}

func (s *TokenStore) sweepLocked(now time.Time) {
	for k, e := range s.m {
		if now.After(e.exp) {
			delete(s.m, k)
		}
	}
}
