// Package ledger keeps the set of granted power reservations.
//
// The Ledger is the single source of truth for the reserved total. It is not
// safe for concurrent use; the admission controller serializes access.
package ledger

import (
	"sort"

	"github.com/kilianp07/pa/core/model"
)

// Ledger stores active reservations sorted ascending by amount together with
// the queue of reservations pending revocation.
type Ledger struct {
	items    []model.Reservation
	reserved float64
	queue    []model.Revocation
}

// New returns an empty ledger.
func New() *Ledger { return &Ledger{} }

// Insert adds r and keeps the ledger sorted by amount.
func (l *Ledger) Insert(r model.Reservation) {
	l.items = append(l.items, r)
	sort.SliceStable(l.items, func(i, j int) bool { return l.items[i].Amount < l.items[j].Amount })
	l.sum()
}

// Find returns the index of the reservation matching id and amount or -1.
func (l *Ledger) Find(id string, amount float64) int {
	for i, r := range l.items {
		if r.Matches(id, amount) {
			return i
		}
	}
	return -1
}

// Remove deletes the reservation matching id and amount.
func (l *Ledger) Remove(id string, amount float64) (model.Reservation, bool) {
	i := l.Find(id, amount)
	if i < 0 {
		return model.Reservation{}, false
	}
	r := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.sum()
	return r, true
}

// SetPriority updates the priority of an existing reservation in place.
func (l *Ledger) SetPriority(id string, amount float64, priority int) bool {
	i := l.Find(id, amount)
	if i < 0 {
		return false
	}
	l.items[i].Priority = priority
	return true
}

// Reserved returns the sum of all active amounts.
func (l *Ledger) Reserved() float64 { return l.reserved }

// Len returns the number of active reservations.
func (l *Ledger) Len() int { return len(l.items) }

// All returns a copy of the active reservations in ledger order.
func (l *Ledger) All() []model.Reservation {
	out := make([]model.Reservation, len(l.items))
	copy(out, l.items)
	return out
}

// Enqueue marks the reservation and queues it for revocation. A reservation
// already marked is not queued twice.
func (l *Ledger) Enqueue(r model.Reservation, reason model.RevokeReason) bool {
	i := l.Find(r.ID, r.Amount)
	if i < 0 || l.items[i].Marked {
		return false
	}
	l.items[i].Marked = true
	l.queue = append(l.queue, model.Revocation{Reservation: l.items[i], Reason: reason})
	return true
}

// Pending returns the number of queued revocations.
func (l *Ledger) Pending() int { return len(l.queue) }

// Drain removes every queued reservation from the ledger and returns the
// revocations that still referenced an active grant, lowest priority first.
// A grant refreshed after it was queued is no longer marked and is kept.
func (l *Ledger) Drain() []model.Revocation {
	q := l.queue
	l.queue = nil
	out := make([]model.Revocation, 0, len(q))
	for _, rev := range q {
		i := l.Find(rev.Reservation.ID, rev.Reservation.Amount)
		if i < 0 || !l.items[i].Marked {
			continue
		}
		rev.Reservation = l.items[i]
		l.items = append(l.items[:i], l.items[i+1:]...)
		out = append(out, rev)
	}
	l.sum()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Reservation.Priority > out[j].Reservation.Priority
	})
	return out
}

// TakeAll removes every reservation at once and returns them as revocations
// with the given reason. Pending queue entries are discarded.
func (l *Ledger) TakeAll(reason model.RevokeReason) []model.Revocation {
	out := make([]model.Revocation, 0, len(l.items))
	for i := len(l.items) - 1; i >= 0; i-- {
		out = append(out, model.Revocation{Reservation: l.items[i], Reason: reason})
	}
	l.items = nil
	l.queue = nil
	l.sum()
	return out
}

// Clear drops all reservations and queued revocations.
func (l *Ledger) Clear() []model.Reservation {
	out := l.items
	l.items = nil
	l.queue = nil
	l.sum()
	return out
}

func (l *Ledger) sum() {
	total := 0.0
	for _, r := range l.items {
		total += r.Amount
	}
	l.reserved = total
}
