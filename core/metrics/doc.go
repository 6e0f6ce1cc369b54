// Package metrics defines the sinks that record admission observability data.
// Every sink records controller snapshots; sinks may also implement
// DecisionRecorder, RevocationRecorder or ModeRecorder. Sinks are built from
// configuration through the factory registry and combined with NewMultiSink
// when more than one is configured.
package metrics
