package session

import (
	"context"
	"log"

	"github.com/kamaub/marketplace_api/backend"
)

// WatchProfile re-resolves ctx whenever the signed-in user's profile row
// changes on the feed, so a ban, badge flip, or avatar update made
// elsewhere takes effect on a live consumer without a reconnect. The
// returned cancel must be called on teardown. With no signed-in user
// there is nothing to watch and the cancel is a no-op.
func WatchProfile(sctx *Context, feed backend.Feed) (func(), error) {
	user := sctx.User()
	if user == nil {
		return func() {}, nil
	}

	sub, err := feed.Subscribe(backend.TableProfiles, backend.Filter{Column: "id", Equals: user.UserID.String()}, func(backend.Event) {
		if err := sctx.Refresh(context.Background()); err != nil {
			log.Printf("session: refresh after profile change for %s: %v", user.UserID, err)
		}
	})
	if err != nil {
		return nil, err
	}
	return sub.Close, nil
}
