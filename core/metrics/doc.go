// Package metrics defines the sinks that receive the results of a rolling
// optimisation run. Sinks such as PromSink, InfluxSink and the MQTT publisher
// live in infra/metrics and register themselves by type name; NewSink returns
// a MultiSink automatically when several sinks are configured.
package metrics
