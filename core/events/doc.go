// Package events defines the admission events emitted on the event bus.
//
// Available event types:
//   - DecisionEvent: result of a reserve, release, repri or revoke_all call
//   - RevocationEvent: outcome of an outbound revoke
//   - ModeEvent: day/night transition
//   - SnapshotEvent: controller state after a tick
package events
