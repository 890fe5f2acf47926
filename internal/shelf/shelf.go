package shelf

import (
	"fmt"
	"sync"
	"time"

	"github.com/bitsnbytes/cabinet-core/internal/catalog"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/config"
)

// Shelf aggregates the four slot detectors of one physical shelf.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A single mutex serialises
//     updates against operational calls (calibration, re-baseline, status reads).
type Shelf struct {
	id string

	mu         sync.Mutex
	slots      [config.SlotsPerShelf]*Slot
	lastReport time.Time
}

// SlotChange is one slot's nonzero contribution to an update, giving the
// caller slot-level granularity that the aggregated Delta map does not carry.
type SlotChange struct {
	Index  int
	Item   catalog.Item
	Change int
}

// NewShelf builds a shelf from its four slots and the first reading that
// caused its construction.
//
// Slots whose first value is non-null get their median window and lagged
// reference seeded with the normalized reading, so a stable load produces no
// spurious event while the window warms up.
func NewShelf(id string, slots [config.SlotsPerShelf]*Slot, initial []*float64) *Shelf {
	sh := &Shelf{
		id:    id,
		slots: slots,
	}
	n := len(initial)
	if n > config.SlotsPerShelf {
		n = config.SlotsPerShelf
	}
	for i := 0; i < n; i++ {
		if initial[i] != nil && sh.slots[i] != nil {
			slot := sh.slots[i]
			slot.seedBaseline(*initial[i] * slot.ConversionFactor())
		}
	}
	return sh
}

// ID returns the shelf hardware identifier.
func (sh *Shelf) ID() string {
	return sh.id
}

// Update fans a reading out to the slots and returns the per-item delta map
// plus the nonzero slot-level changes behind it.
//
// Null values skip their slot but do not fail the update. lastReport advances
// unconditionally: a shelf that reports unusable values is still alive.
//
// Parameters:
//   - weights: One raw value per slot; nil entries are skipped
//   - at: The time the reading was received
//
// Returns:
//   - Delta: Net unit change per item ID across all updated slots
//   - []SlotChange: The individual nonzero slot deltas
func (sh *Shelf) Update(weights []*float64, at time.Time) (Delta, []SlotChange) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.lastReport = at

	delta := make(Delta)
	var changes []SlotChange
	n := len(weights)
	if n > config.SlotsPerShelf {
		n = config.SlotsPerShelf
	}
	for i := 0; i < n; i++ {
		if weights[i] == nil || sh.slots[i] == nil {
			continue
		}
		slot := sh.slots[i]
		change := slot.Update(*weights[i])
		delta[slot.Item().ID] += change
		if change != 0 {
			changes = append(changes, SlotChange{Index: i, Item: slot.Item(), Change: change})
		}
	}
	return delta, changes
}

// LastReport returns the time of the most recent reading.
func (sh *Shelf) LastReport() time.Time {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.lastReport
}

// Calibrate runs the two-point calibration on one slot.
func (sh *Shelf) Calibrate(slotIndex int, zeroRaw, loadedRaw, knownGrams float64) (float64, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	slot, err := sh.slotAt(slotIndex)
	if err != nil {
		return 0, err
	}
	return slot.Calibrate(zeroRaw, loadedRaw, knownGrams)
}

// SetConversionFactor installs a conversion factor on one slot.
func (sh *Shelf) SetConversionFactor(slotIndex int, factor float64) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	slot, err := sh.slotAt(slotIndex)
	if err != nil {
		return err
	}
	return slot.SetConversionFactor(factor)
}

// Rebaseline re-baselines one slot on its most recent reading.
func (sh *Shelf) Rebaseline(slotIndex int) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	slot, err := sh.slotAt(slotIndex)
	if err != nil {
		return err
	}
	slot.rebaseline()
	return nil
}

// MostRecentRawWeight returns the raw value of one slot's latest reading.
func (sh *Shelf) MostRecentRawWeight(slotIndex int) (float64, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	slot, err := sh.slotAt(slotIndex)
	if err != nil {
		return 0, err
	}
	return slot.PreviousRawWeight(), nil
}

// SlotStatus is a point-in-time snapshot of one slot for the admin API.
type SlotStatus struct {
	Index            int     `json:"index"`
	ItemID           int64   `json:"item_id"`
	ItemName         string  `json:"item_name"`
	ConversionFactor float64 `json:"conversion_factor"`
	RawWeight        float64 `json:"raw_weight"`
}

// Status snapshots all four slots.
func (sh *Shelf) Status() []SlotStatus {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	statuses := make([]SlotStatus, 0, config.SlotsPerShelf)
	for i, slot := range sh.slots {
		if slot == nil {
			continue
		}
		statuses = append(statuses, SlotStatus{
			Index:            i,
			ItemID:           slot.Item().ID,
			ItemName:         slot.Item().Name,
			ConversionFactor: slot.ConversionFactor(),
			RawWeight:        slot.PreviousRawWeight(),
		})
	}
	return statuses
}

// slotAt validates the index. Caller holds the mutex.
func (sh *Shelf) slotAt(slotIndex int) (*Slot, error) {
	if slotIndex < 0 || slotIndex >= config.SlotsPerShelf {
		return nil, fmt.Errorf("%w: %d", ErrSlotIndex, slotIndex)
	}
	if sh.slots[slotIndex] == nil {
		return nil, fmt.Errorf("%w: %d", ErrSlotIndex, slotIndex)
	}
	return sh.slots[slotIndex], nil
}
