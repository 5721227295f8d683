// Package metrics defines the sinks that observe the simulation. Sinks such
// as PromSink and InfluxSink in infra/metrics record day reports, plant
// states, part events and adequacy studies, and can be combined with
// NewMultiSink. NewSink returns a MultiSink automatically when several sinks
// are configured.
package metrics
