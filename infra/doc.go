// Package infra holds the adapters around the optimiser: price data files,
// result sinks (Prometheus, InfluxDB, MQTT, SQLite), logging and error
// reporting. They depend only on interfaces defined in core.
package infra
