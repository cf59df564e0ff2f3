// Package metrics defines the sinks recording planning outcomes. A sink
// receives one ScenarioEvent per solved or failed scenario and, when it
// implements SweepRecorder, one SweepEvent per sweep. Sinks are built from
// configuration through the factory registry; several configured sinks are
// combined in a MultiSink.
package metrics
