package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recordMonitor struct {
	errs    []error
	tags    []map[string]string
	panics  []any
	flushed int
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordMonitor) CapturePanic(v any)  { r.panics = append(r.panics, v) }
func (r *recordMonitor) Flush(time.Duration) { r.flushed++ }

func TestCaptureException(t *testing.T) {
	rec := &recordMonitor{}
	Init(rec)
	defer Init(nil)

	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"module": "rpc"})
	if len(rec.errs) != 1 || rec.tags[0]["module"] != "rpc" {
		t.Fatalf("unexpected captures: %+v", rec.errs)
	}
}

func TestRecoverRepanics(t *testing.T) {
	rec := &recordMonitor{}
	Init(rec)
	defer Init(nil)

	func() {
		defer func() {
			if r := recover(); r != "tick" {
				t.Fatalf("expected re-panic, got %v", r)
			}
		}()
		defer Recover()
		panic("tick")
	}()
	if len(rec.panics) != 1 || rec.flushed != 1 {
		t.Fatalf("panic not reported: %+v", rec)
	}
}
