package stream

import (
	"sync"

	"github.com/elara-app/go-elara/alerts"
)

// DefaultMaxEntries caps the in-memory notification list.
const DefaultMaxEntries = 20

// List is the locally held notification list that stream events are
// reconciled into. The alert ID is the reconciliation key: an incoming
// alert whose ID is already present replaces that entry in place,
// preserving order; otherwise it is prepended. The list never grows past
// its cap.
type List struct {
	lock  sync.RWMutex
	max   int
	items []alerts.Alert
}

// NewList creates a List capped at max entries; max <= 0 uses
// DefaultMaxEntries.
func NewList(max int) *List {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &List{max: max}
}

// Upsert reconciles one alert into the list.
func (l *List) Upsert(alert alerts.Alert) {
	l.lock.Lock()
	defer l.lock.Unlock()

	for i := range l.items {
		if l.items[i].ID == alert.ID {
			l.items[i] = alert
			return
		}
	}

	l.items = append([]alerts.Alert{alert}, l.items...)
	if len(l.items) > l.max {
		l.items = l.items[:l.max]
	}
}

// Replace swaps the whole list for a bulk-fetched snapshot, applying the
// same cap.
func (l *List) Replace(items []alerts.Alert) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if len(items) > l.max {
		items = items[:l.max]
	}
	l.items = append([]alerts.Alert(nil), items...)
}

// MarkRead flips the unread flag on the entry with the given ID, if
// present. This is the optimistic local mutation; the server copy is
// reconciled on the next fetch.
func (l *List) MarkRead(id int64) {
	l.lock.Lock()
	defer l.lock.Unlock()

	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].IsRead = true
			return
		}
	}
}

// Items returns a copy of the current entries, newest first.
func (l *List) Items() []alerts.Alert {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return append([]alerts.Alert(nil), l.items...)
}

// UnreadCount returns how many entries are unread.
func (l *List) UnreadCount() int {
	l.lock.RLock()
	defer l.lock.RUnlock()

	count := 0
	for i := range l.items {
		if !l.items[i].IsRead {
			count++
		}
	}
	return count
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.items)
}
