// Package jobs holds the cron-driven maintenance tasks.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/session"
	"github.com/kamaub/marketplace_api/websocket"
)

// RecountInterval is how often the safety-net recount runs. Push events
// cover the normal path; this bounds how stale a missed count can get.
const RecountInterval = 30 * time.Second

var (
	store backend.Store
	hub   *websocket.Hub
)

func Init(s backend.Store, h *websocket.Hub) {
	store = s
	hub = h
}

// BroadcastRecount refreshes unread counts for every connected client.
// The change feed normally keeps them current; this catches rows that
// changed while the feed listener was reconnecting.
func BroadcastRecount() {
	hub.RecountAll()
}

// SweepExpiredBans clears bans whose expiry has passed, so users whose
// term is over regain access even if they never log in to trigger the
// lazy reconciliation.
func SweepExpiredBans() {
	log.Println("Running job: SweepExpiredBans...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		log.Printf("Error listing profiles for ban sweep: %v", err)
		return
	}

	now := time.Now()
	cleared := 0
	for i := range profiles {
		p := &profiles[i]
		if !p.IsBanned || p.BannedUntil == nil || session.Restricted(p, now) {
			continue
		}
		if _, err := session.ReconcileBan(ctx, store, p, now); err != nil {
			log.Printf("Error clearing expired ban for %s: %v", p.ID, err)
			continue
		}
		cleared++
	}

	if cleared > 0 {
		log.Printf("Cleared %d expired ban(s).", cleared)
	}
}
