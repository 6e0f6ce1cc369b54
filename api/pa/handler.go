// Package pa exposes the admission controller state over HTTP.
package pa

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/pa/core/audit"
	"github.com/kilianp07/pa/core/model"
	"github.com/kilianp07/pa/core/telemetry"
)

// StatusProvider is the read side of the admission controller.
type StatusProvider interface {
	Snapshot() model.Snapshot
	Readings() map[string]telemetry.Reading
}

// Status is the body of GET /api/pa/status.
type Status struct {
	model.Snapshot
	Readings map[string]telemetry.Reading `json:"readings"`
}

// NewRouter registers the status endpoints. A nil store disables
// /api/pa/decisions.
func NewRouter(p StatusProvider, store audit.LogStore) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/api/pa/status", NewStatusHandler(p)).Methods(http.MethodGet)
	r.Handle("/api/pa/reservations", NewReservationsHandler(p)).Methods(http.MethodGet)
	if store != nil {
		r.Handle("/api/pa/decisions", NewDecisionsHandler(store)).Methods(http.MethodGet)
	}
	return r
}

// NewStatusHandler serves the latest snapshot and telemetry readings.
func NewStatusHandler(p StatusProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, Status{Snapshot: p.Snapshot(), Readings: p.Readings()})
	})
}

// NewReservationsHandler serves the active reservations, optionally filtered
// by ?agent=.
func NewReservationsHandler(p StatusProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent := r.URL.Query().Get("agent")
		out := []model.Reservation{}
		for _, res := range p.Snapshot().Reservations {
			if agent == "" || res.Agent() == agent {
				out = append(out, res)
			}
		}
		writeJSON(w, out)
	})
}

// NewDecisionsHandler queries the audit log. Supported parameters are start
// and end (RFC3339), agent, kind and limit.
func NewDecisionsHandler(store audit.LogStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()
		q := audit.Query{Agent: v.Get("agent"), Kind: v.Get("kind")}
		var err error
		if s := v.Get("start"); s != "" {
			if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
		}
		if s := v.Get("end"); s != "" {
			if q.End, err = time.Parse(time.RFC3339, s); err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
		}
		if s := v.Get("limit"); s != "" {
			if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []audit.Record{}
		}
		writeJSON(w, records)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
