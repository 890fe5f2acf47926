// Package metrics defines the Prometheus collectors exported by Cabinet Core.
package metrics
