// Package auth decides whether a request may reach the API.
package auth

import (
	"log/slog"
	"net"
	"sync"

	"github.com/icloudbridge/bridge/internal/crypto"
	"github.com/icloudbridge/bridge/internal/settings"
)

const (
	ReasonRemoteDisabled = "remote access disabled"
	ReasonMissingToken   = "missing token"
	ReasonInvalidToken   = "invalid token"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// SnapshotSource provides the current settings.
type SnapshotSource interface {
	Snapshot() *settings.Snapshot
}

// Authorizer evaluates requests against the current settings snapshot.
// Successful digest verifications are remembered until the snapshot changes.
type Authorizer struct {
	source SnapshotSource

	mu       sync.Mutex
	cacheFor *settings.Snapshot
	verified map[string]struct{}
}

// NewAuthorizer returns an Authorizer reading settings from source.
func NewAuthorizer(source SnapshotSource) *Authorizer {
	return &Authorizer{source: source}
}

// Authorize decides for a request from remoteAddr (the TCP peer, host:port or
// bare host) carrying token, which may be empty.
func (a *Authorizer) Authorize(remoteAddr, token string) Decision {
	if IsLoopback(remoteAddr) {
		return allow()
	}

	snap := a.source.Snapshot()
	if snap == nil || !snap.RemoteAccess {
		return deny(ReasonRemoteDisabled)
	}
	if token == "" {
		return deny(ReasonMissingToken)
	}

	fp := crypto.Fingerprint(token)
	if a.cached(snap, fp) {
		return allow()
	}

	for _, t := range snap.Tokens {
		ok, err := crypto.VerifyToken(token, t.Digest)
		if err != nil {
			slog.Warn("skipping malformed token digest", "token_id", t.ID, "error", err)
			continue
		}
		if ok {
			a.remember(snap, fp)
			return allow()
		}
	}
	return deny(ReasonInvalidToken)
}

func (a *Authorizer) cached(snap *settings.Snapshot, fp string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cacheFor != snap {
		a.cacheFor = snap
		a.verified = make(map[string]struct{})
		return false
	}
	_, ok := a.verified[fp]
	return ok
}

func (a *Authorizer) remember(snap *settings.Snapshot, fp string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cacheFor != snap {
		return
	}
	a.verified[fp] = struct{}{}
}

// IsLoopback reports whether addr names a loopback interface address.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
