package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSlotWeight records a smoothed slot weight sample.
//
// This is the primary method for recording shelf telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - shelfID: Shelf hardware identifier (e.g., "AA:BB:CC:DD:EE:01")
//   - slotIndex: Slot position on the shelf (0-3)
//   - grams: Smoothed weight in grams
//
// Example:
//
//	client.WriteSlotWeight("AA:BB:CC:DD:EE:01", 2, 94.6)
func (c *Client) WriteSlotWeight(shelfID string, slotIndex int, grams float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"slot_weight",
		map[string]string{
			"shelf_id": shelfID,
			"slot":     slotName(slotIndex),
		},
		map[string]interface{}{
			"grams": grams,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCartEvent records a detected pick or return.
//
// Parameters:
//   - shelfID: Shelf hardware identifier
//   - slotIndex: Slot position on the shelf (0-3)
//   - itemID: Catalog item ID stocked in the slot
//   - quantity: Number of units moved (always positive)
//   - direction: "add" (item picked into the cart) or "remove" (item returned to the shelf)
func (c *Client) WriteCartEvent(shelfID string, slotIndex int, itemID int64, quantity int, direction string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"cart_event",
		map[string]string{
			"shelf_id":  shelfID,
			"slot":      slotName(slotIndex),
			"direction": direction,
		},
		map[string]interface{}{
			"item_id":  itemID,
			"quantity": quantity,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("watchdog",
//	    map[string]string{"cabinet": "cabinet-001"},
//	    map[string]interface{}{"stale_shelves": 1})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// slotName renders a slot index as a low-cardinality tag value.
func slotName(index int) string {
	switch index {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "unknown"
	}
}
