package postgres

import (
	"encoding/json"
	"log"
	"time"

	"github.com/kamaub/marketplace_api/backend"
	"github.com/kamaub/marketplace_api/models"
	"github.com/lib/pq"
)

// FeedChannel is the NOTIFY channel the row-change triggers publish on.
// database.Migrate installs the triggers.
const FeedChannel = "row_changes"

// Feed turns Postgres NOTIFY payloads into backend events and fans them
// out to local subscribers. One Feed per process; subscriptions are cheap.
type Feed struct {
	listener *pq.Listener
	bus      *backend.Bus
	done     chan struct{}
}

type payload struct {
	Table string          `json:"table"`
	Kind  string          `json:"kind"`
	Row   json.RawMessage `json:"row"`
}

func NewFeed(dsn string) (*Feed, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(_ pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("change feed listener: %v", err)
		}
	})
	if err := listener.Listen(FeedChannel); err != nil {
		listener.Close()
		return nil, err
	}

	f := &Feed{
		listener: listener,
		bus:      backend.NewBus(),
		done:     make(chan struct{}),
	}
	go f.run()
	return f, nil
}

var _ backend.Feed = (*Feed)(nil)

func (f *Feed) Subscribe(table backend.Table, filter backend.Filter, handler backend.Handler) (backend.Subscription, error) {
	return f.bus.Subscribe(table, filter, handler)
}

func (f *Feed) Close() error {
	close(f.done)
	return f.listener.Close()
}

func (f *Feed) run() {
	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			// A nil notification signals the driver reconnected; rows
			// committed during the gap were missed, and the periodic
			// safety-net recount reconciles them.
			if n == nil {
				continue
			}
			event, ok := decode([]byte(n.Extra))
			if !ok {
				continue
			}
			f.bus.Publish(event)
		case <-time.After(90 * time.Second):
			go func() {
				if err := f.listener.Ping(); err != nil {
					log.Printf("change feed ping: %v", err)
				}
			}()
		}
	}
}

// decode parses a trigger payload into a typed event. Malformed payloads
// are dropped at this boundary so handlers never see an untyped row.
func decode(raw []byte) (backend.Event, bool) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("change feed: bad payload: %v", err)
		return backend.Event{}, false
	}

	event := backend.Event{Kind: backend.Kind(p.Kind), Table: backend.Table(p.Table)}
	switch event.Kind {
	case backend.Insert, backend.Update, backend.Delete:
	default:
		return backend.Event{}, false
	}

	switch event.Table {
	case backend.TableMessages:
		var msg models.Message
		if err := json.Unmarshal(p.Row, &msg); err != nil {
			log.Printf("change feed: bad message row: %v", err)
			return backend.Event{}, false
		}
		event.Message = &msg
	case backend.TableProfiles:
		var profile models.Profile
		if err := json.Unmarshal(p.Row, &profile); err != nil {
			log.Printf("change feed: bad profile row: %v", err)
			return backend.Event{}, false
		}
		event.Profile = &profile
	default:
		return backend.Event{}, false
	}
	return event, true
}
