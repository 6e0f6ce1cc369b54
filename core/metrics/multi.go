package metrics

import "errors"

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSnapshot forwards to every sink and joins the errors.
func (m *MultiSink) RecordSnapshot(rec SnapshotRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordSnapshot(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDecision forwards to the sinks that record decisions.
func (m *MultiSink) RecordDecision(rec DecisionRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DecisionRecorder); ok {
			if err := r.RecordDecision(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordRevocation forwards to the sinks that record revocations.
func (m *MultiSink) RecordRevocation(rec RevocationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RevocationRecorder); ok {
			if err := r.RecordRevocation(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordMode forwards to the sinks that record mode changes.
func (m *MultiSink) RecordMode(rec ModeRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ModeRecorder); ok {
			if err := r.RecordMode(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
