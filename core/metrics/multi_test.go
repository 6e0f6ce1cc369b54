package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	snapshots   int
	decisions   int
	revocations int
	err         error
}

func (r *recordSink) RecordSnapshot(SnapshotRecord) error {
	r.snapshots++
	return r.err
}

func (r *recordSink) RecordDecision(DecisionRecord) error {
	r.decisions++
	return r.err
}

func (r *recordSink) RecordRevocation(RevocationRecord) error {
	r.revocations++
	return r.err
}

type snapshotOnly struct{ n int }

func (s *snapshotOnly) RecordSnapshot(SnapshotRecord) error { s.n++; return nil }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &snapshotOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordSnapshot(SnapshotRecord{}); err != nil {
		t.Fatalf("record snapshot: %v", err)
	}
	if err := m.RecordDecision(DecisionRecord{}); err != nil {
		t.Fatalf("record decision: %v", err)
	}
	if err := m.RecordRevocation(RevocationRecord{}); err != nil {
		t.Fatalf("record revocation: %v", err)
	}
	if err := m.RecordMode(ModeRecord{}); err != nil {
		t.Fatalf("record mode: %v", err)
	}
	if s1.snapshots != 1 || s2.decisions != 1 || s2.revocations != 1 || s3.n != 1 {
		t.Fatalf("records not forwarded")
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordSnapshot(SnapshotRecord{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s2.snapshots != 1 {
		t.Fatalf("second sink skipped")
	}
}
