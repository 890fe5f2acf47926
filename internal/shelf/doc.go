// Package shelf implements the weight event-detection engine.
//
// A cabinet holds shelves; each shelf carries four load-cell slots, each
// stocked with one catalog item. Shelf controllers publish raw readings to a
// shared MQTT topic; the Engine queues them, the Registry routes them to the
// right Shelf, and each Slot turns weight deltas into pick/return events
// through calibration, median smoothing, and hysteresis. The Watchdog flags
// shelves that stop reporting.
//
// Data flow:
//
//	MQTT shelf/data → Engine (bounded queue, single dispatcher)
//	                → Registry (decode, validate, lazy construction)
//	                → Shelf (fan-out) → Slot (detection) → Event callbacks
package shelf
