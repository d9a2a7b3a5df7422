package influxdb

import "errors"

// Errors returned by Connect and HealthCheck. Write failures are
// asynchronous and reach the SetOnError callback instead.
var (
	// ErrNotConnected is returned after Close, or by a zero Client.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed or unhealthy ping during Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
