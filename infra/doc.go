// Package infra contains the technical adapters of the admission controller:
// the paho MQTT client and RPC server, telemetry subscription, the zerolog
// logger, Prometheus and InfluxDB sinks, and Sentry monitoring. These
// packages depend only on interfaces defined in the core packages.
package infra
