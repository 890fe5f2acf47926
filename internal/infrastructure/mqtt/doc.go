// Package mqtt wraps paho.mqtt.golang for Cabinet Core.
//
// It provides a connection-managed client with automatic reconnection,
// subscription restoration, Last Will and Testament on cabinet/system/status,
// and topic builders covering both the firmware surface (shelf/data,
// aux/control/*, aux/status/*) and the core surface (cabinet/core/*).
package mqtt
