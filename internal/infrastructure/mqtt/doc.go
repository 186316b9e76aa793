// Package mqtt publishes sqlbridge status and worker statistics to an MQTT
// broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained online/offline status per process instance
//   - Last Will and Testament (LWT) for crash detection
//   - Retained statistics snapshots per database
//
// # Topics
//
//	sqlbridge/status/{instance}        online | offline (retained, LWT)
//	sqlbridge/stats/{instance}/{name}  bridge.Stats as JSON (retained)
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) outside local development
//   - Set credentials via SQLBRIDGE_MQTT_USERNAME / SQLBRIDGE_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, instanceID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.PublishStats(ctx, db.Stats())
package mqtt
