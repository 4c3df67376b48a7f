package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/backend/memory"
	"github.com/kamaub/marketplace_api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdentity lets a test drive sign-in and sign-out events.
type fakeIdentity struct {
	mu       sync.Mutex
	current  *backend.Session
	listener func(*backend.Session)
}

func (f *fakeIdentity) CurrentSession(ctx context.Context) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeIdentity) OnSessionChange(fn func(*backend.Session)) (cancel func()) {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listener = nil
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) signIn(s *backend.Session) {
	f.mu.Lock()
	f.current = s
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (f *fakeIdentity) signOut() { f.signIn(nil) }

// countingProfiles records profile mutations issued through it.
type countingProfiles struct {
	backend.Profiles
	mu      sync.Mutex
	patches []map[string]any
}

func (p *countingProfiles) UpdateProfile(ctx context.Context, id uuid.UUID, patch map[string]any) (int64, error) {
	p.mu.Lock()
	p.patches = append(p.patches, patch)
	p.mu.Unlock()
	return p.Profiles.UpdateProfile(ctx, id, patch)
}

func (p *countingProfiles) patchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.patches)
}

func TestContext_AnonymousThenAuthenticated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	identity := &fakeIdentity{}

	sc := NewContext(identity, store, nil)
	assert.Equal(t, Unresolved, sc.State())

	require.NoError(t, sc.Start(ctx))
	defer sc.Close()
	assert.Equal(t, Anonymous, sc.State())
	assert.Nil(t, sc.Profile())

	userID := uuid.New()
	identity.signIn(&backend.Session{UserID: userID, Username: "ada"})

	assert.Equal(t, Authenticated, sc.State())
	profile := sc.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, userID, profile.ID)
	assert.Equal(t, "ada", profile.Username)

	// The first sign-in created the profile row lazily.
	stored, err := store.ProfileByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ada", stored.Username)

	identity.signOut()
	assert.Equal(t, Anonymous, sc.State())
	assert.Nil(t, sc.Profile())
}

func TestContext_ExpiredBanReconciledOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	profiles := &countingProfiles{Profiles: store}
	userID := uuid.New()

	expired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{
		ID:          userID,
		Username:    "banned-once",
		IsBanned:    true,
		BannedUntil: &expired,
	}))

	identity := &fakeIdentity{current: &backend.Session{UserID: userID, Username: "banned-once"}}
	sc := NewContext(identity, profiles, nil)
	require.NoError(t, sc.Start(ctx))
	defer sc.Close()

	assert.False(t, sc.Restricted())
	require.Equal(t, 1, profiles.patchCount())
	assert.Equal(t, map[string]any{"is_banned": false, "banned_until": nil}, profiles.patches[0])

	profile := sc.Profile()
	require.NotNil(t, profile)
	assert.False(t, profile.IsBanned)
	assert.Nil(t, profile.BannedUntil)

	// Refreshing must not issue another corrective mutation.
	require.NoError(t, sc.Refresh(ctx))
	assert.Equal(t, 1, profiles.patchCount())
}

func TestContext_ActiveBanRestricts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	profiles := &countingProfiles{Profiles: store}
	userID := uuid.New()

	until := time.Now().Add(24 * time.Hour)
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{
		ID:          userID,
		Username:    "still-banned",
		IsBanned:    true,
		BannedUntil: &until,
	}))

	identity := &fakeIdentity{current: &backend.Session{UserID: userID, Username: "still-banned"}}
	sc := NewContext(identity, profiles, nil)
	require.NoError(t, sc.Start(ctx))
	defer sc.Close()

	assert.True(t, sc.Restricted())
	assert.Equal(t, 0, profiles.patchCount())
}

func TestContext_RefreshPicksUpAdminChanges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	userID := uuid.New()

	require.NoError(t, store.CreateProfile(ctx, &models.Profile{ID: userID, Username: "grace"}))
	identity := &fakeIdentity{current: &backend.Session{UserID: userID, Username: "grace"}}

	changes := 0
	sc := NewContext(identity, store, func() { changes++ })
	require.NoError(t, sc.Start(ctx))
	defer sc.Close()
	require.False(t, sc.Restricted())

	_, err := store.UpdateProfile(ctx, userID, map[string]any{"is_banned": true, "banned_until": nil})
	require.NoError(t, err)

	require.NoError(t, sc.Refresh(ctx))
	assert.True(t, sc.Restricted())
	assert.Greater(t, changes, 0)
}

func TestWatchProfile_RemoteBanAppliesLive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	userID := uuid.New()

	require.NoError(t, store.CreateProfile(ctx, &models.Profile{ID: userID, Username: "mallory"}))
	identity := &fakeIdentity{current: &backend.Session{UserID: userID, Username: "mallory"}}

	changes := 0
	sc := NewContext(identity, store, func() { changes++ })
	require.NoError(t, sc.Start(ctx))
	defer sc.Close()
	require.False(t, sc.Restricted())

	cancel, err := WatchProfile(sc, store)
	require.NoError(t, err)
	before := changes

	// No explicit Refresh: the ban must land through the feed alone.
	until := time.Now().Add(24 * time.Hour)
	_, err = store.UpdateProfile(ctx, userID, map[string]any{"is_banned": true, "banned_until": &until})
	require.NoError(t, err)

	assert.True(t, sc.Restricted())
	profile := sc.Profile()
	require.NotNil(t, profile)
	assert.True(t, profile.IsBanned)
	assert.Greater(t, changes, before)

	// After cancel the context no longer follows the row.
	cancel()
	_, err = store.UpdateProfile(ctx, userID, map[string]any{"is_banned": false, "banned_until": nil})
	require.NoError(t, err)
	assert.True(t, sc.Restricted())
}

func TestWatchProfile_IgnoresOtherProfiles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	userID, otherID := uuid.New(), uuid.New()

	require.NoError(t, store.CreateProfile(ctx, &models.Profile{ID: userID, Username: "ada"}))
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{ID: otherID, Username: "bob"}))
	identity := &fakeIdentity{current: &backend.Session{UserID: userID, Username: "ada"}}

	changes := 0
	sc := NewContext(identity, store, func() { changes++ })
	require.NoError(t, sc.Start(ctx))
	defer sc.Close()

	cancel, err := WatchProfile(sc, store)
	require.NoError(t, err)
	defer cancel()
	before := changes

	_, err = store.UpdateProfile(ctx, otherID, map[string]any{"is_banned": true, "banned_until": nil})
	require.NoError(t, err)

	assert.False(t, sc.Restricted())
	assert.Equal(t, before, changes)
}

func TestRestricted(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, Restricted(nil, now))
	assert.False(t, Restricted(&models.Profile{}, now))
	assert.True(t, Restricted(&models.Profile{IsBanned: true}, now))
	assert.True(t, Restricted(&models.Profile{IsBanned: true, BannedUntil: &future}, now))
	assert.False(t, Restricted(&models.Profile{IsBanned: true, BannedUntil: &past}, now))
}
