package shelf

import (
	"time"

	"github.com/google/uuid"

	"github.com/bitsnbytes/cabinet-core/internal/catalog"
)

// Delta maps a catalog item ID to its net unit change for one reading cycle.
// Positive values mean units were placed back on the shelf; negative values
// mean units were picked. Items whose slots were updated but produced no
// change appear with a zero value.
type Delta map[int64]int

// Direction classifies a cart event from the shopper's point of view.
type Direction string

const (
	// DirectionAdd: units left the shelf and entered the shopper's cart.
	DirectionAdd Direction = "add"

	// DirectionRemove: units returned to the shelf and left the cart.
	DirectionRemove Direction = "remove"
)

// Event is a single detected pick or return.
//
// The sign contract: a positive slot delta (weight increased) removes units
// from the cart; a negative delta (weight decreased) adds them.
type Event struct {
	ID         uuid.UUID
	ShelfID    string
	SlotIndex  int
	Item       catalog.Item
	Quantity   int // units moved, always positive
	Direction  Direction
	OccurredAt time.Time
}

// newEvent builds an Event from a nonzero slot delta.
func newEvent(shelfID string, slotIndex int, item catalog.Item, delta int, at time.Time) Event {
	e := Event{
		ID:         uuid.New(),
		ShelfID:    shelfID,
		SlotIndex:  slotIndex,
		Item:       item,
		OccurredAt: at,
	}
	if delta > 0 {
		e.Direction = DirectionRemove
		e.Quantity = delta
	} else {
		e.Direction = DirectionAdd
		e.Quantity = -delta
	}
	return e
}
