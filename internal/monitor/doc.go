// Package monitor periodically samples bridge statistics and fans them out
// to the configured sinks.
//
// A Reporter reads Stats from a Source on a fixed interval and hands each
// snapshot to every registered Sink. Sinks are the MQTT client (retained
// stats topic) and the InfluxDB client (bridge_stats measurement); either
// may be absent.
//
// Sink failures are logged and never stop the loop. A stopped reporter can
// not be restarted.
package monitor
