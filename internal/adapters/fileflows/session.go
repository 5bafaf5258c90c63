package fileflows

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

type loginFunc func(ctx context.Context, creds Login) (string, error)

// session owns the bearer token of one client. The token pointer is swapped
// atomically; concurrent callers that find it missing or expired share a
// single login.
type session struct {
	creds   Login
	login   loginFunc
	current atomic.Pointer[oauth2.Token]
	group   singleflight.Group
	logins  atomic.Int64
	now     func() time.Time
}

func newSession(creds Login, login loginFunc) *session {
	return &session{creds: creds, login: login, now: time.Now}
}

// token returns the cached token while it is inside its estimated lifetime,
// logging in otherwise.
func (s *session) token(ctx context.Context) (*oauth2.Token, error) {
	if tok := s.current.Load(); s.usable(tok) {
		return tok, nil
	}

	v, err, _ := s.group.Do("login", func() (interface{}, error) {
		if tok := s.current.Load(); s.usable(tok) {
			return tok, nil
		}
		// Callers waiting on this login must not fail because the first
		// one went away; each exchange keeps its own timeout.
		access, err := s.login(context.WithoutCancel(ctx), s.creds)
		if err != nil {
			s.current.Store(nil)
			return nil, err
		}
		s.logins.Add(1)
		tok := &oauth2.Token{
			AccessToken: access,
			TokenType:   "Bearer",
			Expiry:      s.now().Add(s.creds.ttl()),
		}
		s.current.Store(tok)
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (s *session) usable(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	return s.now().Before(tok.Expiry)
}

// invalidate drops stale only if it is still the cached token, so a token
// refreshed by a concurrent call is kept.
func (s *session) invalidate(stale *oauth2.Token) {
	s.current.CompareAndSwap(stale, nil)
}

// SessionInfo describes the login session for health output. The token
// itself is never exposed.
type SessionInfo struct {
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Logins    int64     `json:"logins"`
}

// Session reports the state of the login session. The second result is
// false when the client is not in Login mode.
func (c *Client) Session() (SessionInfo, bool) {
	if c.session == nil {
		return SessionInfo{}, false
	}
	info := SessionInfo{Logins: c.session.logins.Load()}
	if tok := c.session.current.Load(); c.session.usable(tok) {
		info.Active = true
		info.ExpiresAt = tok.Expiry
	}
	return info, true
}
