package audit

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openStores(t *testing.T) map[string]LogStore {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("jsonl: %v", err)
	}
	rotating, err := NewRotatingJSONLStore(filepath.Join(dir, "rot", "audit.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("rotating: %v", err)
	}
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	stores := map[string]LogStore{"jsonl": jsonl, "rotating": rotating, "sqlite": sqlite}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStores_AppendQuery(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	recs := []Record{
		{Timestamp: base, Kind: KindDecision, Op: "reserve", ID: "ev/charger/1", Agent: "ev", Amount: 1000, Code: "ok"},
		{Timestamp: base.Add(time.Second), Kind: KindDecision, Op: "reserve", ID: "hp/heat/1", Agent: "hp", Amount: 500, Code: "denied_rate_limited"},
		{Timestamp: base.Add(2 * time.Second), Kind: KindRevocation, Op: "revoke", ID: "ev/charger/1", Agent: "ev", Reason: "deficit"},
		{Timestamp: base.Add(3 * time.Second), Kind: KindMode, Mode: "night"},
	}
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, r := range recs {
				if err := store.Append(ctx, r); err != nil {
					t.Fatalf("append: %v", err)
				}
			}
			tests := []struct {
				q    Query
				want int
			}{
				{Query{}, 4},
				{Query{Agent: "ev"}, 2},
				{Query{Kind: KindDecision}, 2},
				{Query{Start: base.Add(time.Second), End: base.Add(2 * time.Second)}, 2},
				{Query{Limit: 1}, 1},
			}
			for _, tc := range tests {
				out, err := store.Query(ctx, tc.q)
				if err != nil {
					t.Fatalf("query %+v: %v", tc.q, err)
				}
				if len(out) != tc.want {
					t.Errorf("query %+v: got %d records, want %d", tc.q, len(out), tc.want)
				}
			}
			out, _ := store.Query(ctx, Query{Limit: 2})
			if len(out) != 2 || out[0].Kind != KindRevocation || out[1].Kind != KindMode {
				t.Errorf("limit must keep the most recent records in order: %+v", out)
			}
		})
	}
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	// 600 records of ~2KB exceed 1MB once.
	rec := Record{Timestamp: time.Now(), Kind: KindDecision, Error: strings.Repeat("x", 2048)}
	for i := 0; i < 600; i++ {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := filepath.Glob(filepath.Join(dir, "audit*.jsonl"))
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
	out, err := store.Query(context.Background(), Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 600 {
		t.Fatalf("expected records across backups, got %d", len(out))
	}
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"jsonl", "rotating", "sqlite"} {
		s, err := NewStore(Config{Backend: backend, Path: filepath.Join(dir, backend)})
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		_ = s.Close()
	}
	if _, err := NewStore(Config{Backend: "csv"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if err := (Config{Backend: "csv"}).Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if (Config{Backend: "none"}).Enabled() {
		t.Fatalf("none must disable the audit log")
	}
}
