// Package influxdb records sqlbridge worker statistics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health monitoring.
//
// # Data
//
//	measurement: bridge_stats
//	tags:        instance, bridge, state
//	fields:      queued, submitted, shared, exclusive, completed,
//	             failed, abandoned, rejected, dropped
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, instanceID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { logger.Warn("influx write failed", "error", err) })
//	err = client.WriteStats(ctx, db.Stats())
package influxdb
