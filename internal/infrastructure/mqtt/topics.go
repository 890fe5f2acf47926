package mqtt

import "fmt"

// Topic prefixes for the cabinet MQTT surface.
//
// Two families coexist on the broker:
//
//   - Firmware topics published/consumed by the shelf controllers and
//     auxiliary hardware (door strike, vend hatch). These are fixed by the
//     embedded firmware and are NOT namespaced under cabinet/.
//   - Core topics published by this service (events, alerts, system status),
//     namespaced under cabinet/.
const (
	// TopicShelfData is the inbound topic every shelf controller publishes
	// raw load-cell readings to. Fixed by firmware.
	TopicShelfData = "shelf/data"

	// TopicPrefixAux is the base for auxiliary hardware topics (doors, hatch).
	// Fixed by firmware.
	TopicPrefixAux = "aux"

	// TopicPrefixCore is the base for all core-published topics.
	TopicPrefixCore = "cabinet/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "cabinet/system"
)

// Topics provides builders for cabinet MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	err := client.Subscribe(topics.ShelfData(), 1, handler)
type Topics struct{}

// =============================================================================
// Firmware Topics
// =============================================================================

// ShelfData returns the shared inbound topic for shelf weight readings.
//
// Example: shelf/data
func (Topics) ShelfData() string {
	return TopicShelfData
}

// DoorsControl returns the command topic for the cabinet door strike.
//
// Example: aux/control/doors
func (Topics) DoorsControl() string {
	return fmt.Sprintf("%s/control/doors", TopicPrefixAux)
}

// HatchControl returns the command topic for the vend hatch actuator.
//
// Example: aux/control/hatch
func (Topics) HatchControl() string {
	return fmt.Sprintf("%s/control/hatch", TopicPrefixAux)
}

// DoorsStatus returns the status topic reported by the door controller.
//
// Example: aux/status/doors
func (Topics) DoorsStatus() string {
	return fmt.Sprintf("%s/status/doors", TopicPrefixAux)
}

// HatchStatus returns the status topic reported by the hatch controller.
//
// Example: aux/status/hatch
func (Topics) HatchStatus() string {
	return fmt.Sprintf("%s/status/hatch", TopicPrefixAux)
}

// AllAuxStatus returns a pattern matching all auxiliary status channels.
//
// Pattern: aux/status/+
func (Topics) AllAuxStatus() string {
	return fmt.Sprintf("%s/status/+", TopicPrefixAux)
}

// =============================================================================
// Core Topics
// =============================================================================

// CoreEvent returns the topic for core events of a given type.
//
// Example: cabinet/core/event/cart_updated
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// CoreAlert returns the topic for core alerts.
//
// Example: cabinet/core/alert/shelf-stale
func (Topics) CoreAlert(alertID string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefixCore, alertID)
}

// CoreShelfState returns the canonical per-shelf state topic.
// This is the authoritative shelf snapshot published by Core after processing
// firmware readings.
//
// Example: cabinet/core/shelf/AA:BB:CC:DD:EE:01/state
func (Topics) CoreShelfState(shelfID string) string {
	return fmt.Sprintf("%s/shelf/%s/state", TopicPrefixCore, shelfID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic used for LWT and
// online/offline announcements.
//
// Example: cabinet/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllCoreEvents returns a pattern matching all core events.
//
// Pattern: cabinet/core/event/+
func (Topics) AllCoreEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixCore)
}

// AllCoreAlerts returns a pattern matching all core alerts.
//
// Pattern: cabinet/core/alert/+
func (Topics) AllCoreAlerts() string {
	return fmt.Sprintf("%s/alert/+", TopicPrefixCore)
}

// AllCoreShelfStates returns a pattern matching all canonical shelf states.
//
// Pattern: cabinet/core/shelf/+/state
func (Topics) AllCoreShelfStates() string {
	return fmt.Sprintf("%s/shelf/+/state", TopicPrefixCore)
}

// AllCabinetTopics returns a pattern matching all core-published topics.
// Use with caution - this receives ALL core traffic.
//
// Pattern: cabinet/#
func (Topics) AllCabinetTopics() string {
	return "cabinet/#"
}
