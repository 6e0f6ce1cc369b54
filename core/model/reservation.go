package model

import (
	"fmt"
	"strings"
	"time"
)

// IDDelimiter joins the agent, module and item parts of a reservation id.
const IDDelimiter = "/"

const (
	MinPriority = 1
	MaxPriority = 100
)

// Reservation is a granted slice of the site power budget.
type Reservation struct {
	ID       string    `json:"id"`
	Amount   float64   `json:"amount"`   // watts, always > 0
	Priority int       `json:"priority"` // 1 is the most important
	Marked   bool      `json:"marked"`   // already queued for revocation
	Created  time.Time `json:"created"`
}

// JoinID builds the reservation id for an agent/module/item triple.
func JoinID(agent, module, item string) string {
	return strings.Join([]string{agent, module, item}, IDDelimiter)
}

// SplitID splits a reservation id into agent, module and item. Missing parts
// are returned empty; extra delimiters stay in the item.
func SplitID(id string) (agent, module, item string) {
	parts := strings.SplitN(id, IDDelimiter, 3)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], "", ""
	}
}

// ClampPriority forces p into [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Agent returns the first id component, the owner of the reservation.
func (r Reservation) Agent() string {
	a, _, _ := SplitID(r.ID)
	return a
}

// Matches reports whether r has the given id and amount.
func (r Reservation) Matches(id string, amount float64) bool {
	return r.ID == id && r.Amount == amount
}

func (r Reservation) String() string {
	return fmt.Sprintf("%s (%.1fW, pri %d)", r.ID, r.Amount, r.Priority)
}
