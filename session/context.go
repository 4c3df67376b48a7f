// Package session resolves the current identity and its profile, and owns
// the ban gate. The context moves Unresolved -> Anonymous or
// Unresolved -> Authenticated(profile pending) -> Authenticated(profile
// loaded), driven by identity-provider events and profile fetches.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/models"
)

type State int

const (
	Unresolved State = iota
	Anonymous
	Authenticated
)

type Context struct {
	identity backend.Identity
	profiles backend.Profiles

	mu      sync.RWMutex
	state   State
	user    *backend.Session
	profile *models.Profile

	cancel   func()
	onChange func()
	now      func() time.Time
}

func NewContext(identity backend.Identity, profiles backend.Profiles, onChange func()) *Context {
	return &Context{
		identity: identity,
		profiles: profiles,
		onChange: onChange,
		now:      time.Now,
	}
}

// Start resolves the current session and registers for identity events.
func (c *Context) Start(ctx context.Context) error {
	current, err := c.identity.CurrentSession(ctx)
	if err != nil {
		return err
	}
	c.cancel = c.identity.OnSessionChange(func(s *backend.Session) {
		c.resolve(context.Background(), s)
	})
	c.resolve(ctx, current)
	return nil
}

func (c *Context) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) User() *backend.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Context) Profile() *models.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return nil
	}
	profile := *c.profile
	return &profile
}

// Restricted reports whether every consumer must see the restriction view
// instead of the application.
func (c *Context) Restricted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Restricted(c.profile, c.now())
}

// Refresh re-fetches the profile so mutations made elsewhere (an admin
// changing a badge or ban) take effect without waiting for the next
// identity event.
func (c *Context) Refresh(ctx context.Context) error {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()
	if user == nil {
		return nil
	}
	return c.loadProfile(ctx, user)
}

func (c *Context) resolve(ctx context.Context, s *backend.Session) {
	if s == nil {
		c.mu.Lock()
		c.state = Anonymous
		c.user = nil
		c.profile = nil
		c.mu.Unlock()
		c.notify()
		return
	}

	c.mu.Lock()
	c.state = Authenticated
	c.user = s
	c.profile = nil
	c.mu.Unlock()
	c.notify()

	if err := c.loadProfile(ctx, s); err != nil {
		log.Printf("session: load profile for %s: %v", s.UserID, err)
	}
}

func (c *Context) loadProfile(ctx context.Context, s *backend.Session) error {
	profile, err := c.profiles.ProfileByID(ctx, s.UserID)
	if errors.Is(err, backend.ErrNotFound) {
		// First sign-in: the profile row is created lazily from the
		// identity metadata.
		profile = &models.Profile{ID: s.UserID, Username: s.Username}
		if err := c.profiles.CreateProfile(ctx, profile); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	profile, err = ReconcileBan(ctx, c.profiles, profile, c.now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.user == nil || c.user.UserID != s.UserID {
		// Torn down or switched user while the fetch was in flight.
		c.mu.Unlock()
		return nil
	}
	c.profile = profile
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Context) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Restricted is the ban predicate: banned with no expiry, or banned with
// an expiry still in the future.
func Restricted(profile *models.Profile, now time.Time) bool {
	if profile == nil || !profile.IsBanned {
		return false
	}
	return profile.BannedUntil == nil || profile.BannedUntil.After(now)
}

// ReconcileBan clears a stale ban flag whose expiry has passed, issuing
// exactly one corrective mutation and returning the refreshed profile.
func ReconcileBan(ctx context.Context, profiles backend.Profiles, profile *models.Profile, now time.Time) (*models.Profile, error) {
	if profile == nil || !profile.IsBanned {
		return profile, nil
	}
	if profile.BannedUntil == nil || profile.BannedUntil.After(now) {
		return profile, nil
	}

	if _, err := profiles.UpdateProfile(ctx, profile.ID, map[string]any{
		"is_banned":    false,
		"banned_until": nil,
	}); err != nil {
		return profile, err
	}
	return profiles.ProfileByID(ctx, profile.ID)
}
