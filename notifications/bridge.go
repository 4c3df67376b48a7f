// Package notifications carries user-facing notices: desktop notifications
// through the Bridge, and toast notices through Notifier implementations.
// The browser primitives (Notification API, document visibility) are
// injected collaborators so the core stays testable server-side.
package notifications

import (
	"fmt"
	"sync"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Sender delivers a desktop notification to the platform (in production, a
// frame pushed to the browser tab).
type Sender interface {
	Send(n Notification)
}

// Bridge decides when a growing unread total becomes a desktop
// notification. It fires only when permission is granted, the page is
// hidden, and the total actually increased over the stored baseline.
type Bridge struct {
	sender  Sender
	visible func() bool
	request func() Permission

	mu         sync.Mutex
	permission Permission
	last       int
	seen       bool
}

func NewBridge(sender Sender, visible func() bool, request func() Permission) *Bridge {
	return &Bridge{
		sender:     sender,
		visible:    visible,
		request:    request,
		permission: PermissionDefault,
	}
}

func (b *Bridge) Permission() Permission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.permission
}

// SetPermission records a permission status reported by the platform.
func (b *Bridge) SetPermission(p Permission) {
	b.mu.Lock()
	b.permission = p
	b.mu.Unlock()
}

// Request prompts the platform for permission and records the answer.
func (b *Bridge) Request() Permission {
	p := b.request()
	b.SetPermission(p)
	return p
}

// NotifyIfIncreased observes a new total unread count. The first
// observation only establishes the baseline; re-synchronizing to the same
// total never fires; a lower total resets the baseline silently.
func (b *Bridge) NotifyIfIncreased(total int) {
	b.mu.Lock()
	if !b.seen {
		b.seen = true
		b.last = total
		b.mu.Unlock()
		return
	}
	delta := total - b.last
	b.last = total
	granted := b.permission == PermissionGranted
	b.mu.Unlock()

	if delta <= 0 || !granted || b.visible() {
		return
	}
	b.sender.Send(Notification{
		Title: "New messages",
		Body:  fmt.Sprintf("You have %d new unread message(s)", delta),
	})
}
