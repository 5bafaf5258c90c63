package fileflows

import (
	"net/http"
	"time"
)

// DefaultTokenHeader is the header FileFlows reads static API tokens from.
const DefaultTokenHeader = "x-token"

// DefaultSessionTTL is how long a login token is trusted before the client logs in again.
// FileFlows issues tokens valid for an hour; refreshing ten minutes early keeps
// requests from racing the real expiry.
const DefaultSessionTTL = 50 * time.Minute

// AuthMode selects how requests are authenticated. Exactly one mode is active
// per client: NoAuth, HeaderToken, BearerToken or Login.
type AuthMode interface {
	// Name identifies the mode in logs and health output.
	Name() string
	authMode()
}

// NoAuth talks only to the public remote/info endpoints.
type NoAuth struct{}

// HeaderToken sends a static API token in a custom header (x-token by default).
type HeaderToken struct {
	Token  string
	Header string
}

// BearerToken sends a static API token as Authorization: Bearer.
type BearerToken struct {
	Token string
}

// Login exchanges a username and password for a session token.
type Login struct {
	Username string
	Password string
	// TTL is the conservative expiry estimate applied to each acquired token.
	TTL time.Duration
}

func (NoAuth) Name() string      { return "none" }
func (HeaderToken) Name() string { return "header_token" }
func (BearerToken) Name() string { return "bearer_token" }
func (Login) Name() string       { return "login" }

func (NoAuth) authMode()      {}
func (HeaderToken) authMode() {}
func (BearerToken) authMode() {}
func (Login) authMode()       {}

func (h HeaderToken) header() string {
	if h.Header == "" {
		return DefaultTokenHeader
	}
	return h.Header
}

func (l Login) ttl() time.Duration {
	if l.TTL <= 0 {
		return DefaultSessionTTL
	}
	return l.TTL
}

// Authenticated reports whether mode unlocks the authenticated resource subset.
func Authenticated(mode AuthMode) bool {
	switch mode.(type) {
	case HeaderToken, BearerToken, Login:
		return true
	default:
		return false
	}
}

// applyStatic sets the header for the static token modes. It reports false for
// modes that carry no static credential.
func applyStatic(mode AuthMode, req *http.Request) bool {
	switch m := mode.(type) {
	case HeaderToken:
		req.Header.Set(m.header(), m.Token)
	case BearerToken:
		req.Header.Set("Authorization", "Bearer "+m.Token)
	default:
		return false
	}
	return true
}

// normalizeMode dereferences pointer variants and maps nil to NoAuth.
func normalizeMode(mode AuthMode) AuthMode {
	switch m := mode.(type) {
	case nil:
		return NoAuth{}
	case *NoAuth:
		return NoAuth{}
	case *HeaderToken:
		return *m
	case *BearerToken:
		return *m
	case *Login:
		return *m
	default:
		return mode
	}
}
