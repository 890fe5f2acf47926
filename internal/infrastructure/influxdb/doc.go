// Package influxdb provides optional time-series telemetry for Cabinet Core.
//
// It wraps influxdb-client-go/v2 with non-blocking batched writes for
// smoothed slot weights and cart events. When disabled in configuration,
// Connect returns ErrDisabled and the rest of the system runs without
// telemetry.
package influxdb
