// Package influxdb records bridge telemetry in InfluxDB.
//
// It wraps influxdb-client-go v2 with a non-blocking, batched write API and
// three gridosc measurements:
//
//	gridosc_session   lifecycle transitions (tags: serial, state)
//	gridosc_input     device input events (tags: serial, event)
//	gridosc_stats     end-of-session counters (tags: serial)
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSession("m1000001", "active", map[string]any{"server_port": 14656})
//
// Write errors are delivered asynchronously through SetOnError; connection
// and health check errors are returned directly.
package influxdb
