// Package influxdb provides InfluxDB connectivity for acecore.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// Time-series storage for ACE telemetry:
//   - Device temperature and fan speed
//   - Dryer target and remaining time
//   - Loaded slot and per-slot target temperature
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "acecore",
//	    Bucket:  "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceMetric("ace", "temperature_c", 31.5)
//	client.WriteSlotMetric("ace", 2, map[string]interface{}{"target_temp_c": 240})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
