package shelf

import (
	"errors"
	"testing"
	"time"

	"github.com/bitsnbytes/cabinet-core/internal/catalog"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/config"
)

var fishItem = catalog.Item{ID: 7, Name: "Swedish Fish Original", AvgWeight: 141, StdWeight: 10}

func ptr(f float64) *float64 { return &f }

func newTestShelf(t *testing.T, initial []*float64) *Shelf {
	t.Helper()
	cfg := testEngineConfig()
	slots := [config.SlotsPerShelf]*Slot{
		NewSlot(pouchItem, cfg),
		NewSlot(fishItem, cfg),
		NewSlot(catalog.Item{}, cfg),
		NewSlot(pouchItem, cfg),
	}
	return NewShelf("AA:BB:CC:DD:EE:01", slots, initial)
}

func settle(sh *Shelf, weights []*float64, cycles int) {
	for i := 0; i < cycles; i++ {
		sh.Update(weights, time.Now())
	}
}

func TestShelf_UpdateAdvancesLastReport(t *testing.T) {
	sh := newTestShelf(t, []*float64{ptr(100), ptr(282), nil, ptr(100)})

	at := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	sh.Update([]*float64{ptr(100), ptr(282), nil, ptr(100)}, at)

	if got := sh.LastReport(); !got.Equal(at) {
		t.Errorf("last report = %v, want %v", got, at)
	}

	// Even an all-nil update counts as a report: the shelf is alive.
	later := at.Add(time.Second)
	sh.Update([]*float64{nil, nil, nil, nil}, later)
	if got := sh.LastReport(); !got.Equal(later) {
		t.Errorf("last report = %v, want %v after nil update", got, later)
	}
}

func TestShelf_StableLoadProducesZeroDeltas(t *testing.T) {
	weights := []*float64{ptr(100), ptr(282), nil, ptr(47)}
	sh := newTestShelf(t, weights)

	for i := 0; i < 30; i++ {
		delta, changes := sh.Update(weights, time.Now())
		if len(changes) != 0 {
			t.Fatalf("cycle %d: changes = %v, want none", i, changes)
		}
		for id, d := range delta {
			if d != 0 {
				t.Fatalf("cycle %d: delta[%d] = %d, want 0", i, id, d)
			}
		}
	}
}

func TestShelf_AggregatesSameItemAcrossSlots(t *testing.T) {
	// Slots 0 and 3 both stock the pouch item.
	initial := []*float64{ptr(100), ptr(282), nil, ptr(100)}
	sh := newTestShelf(t, initial)
	settle(sh, initial, 5)

	// One unit picked from each pouch slot in the same motion.
	after := []*float64{ptr(53), ptr(282), nil, ptr(53)}
	total := 0
	var allChanges []SlotChange
	for i := 0; i < 20; i++ {
		delta, changes := sh.Update(after, time.Now())
		total += delta[pouchItem.ID]
		allChanges = append(allChanges, changes...)
	}

	if total != -2 {
		t.Errorf("aggregate delta = %d, want -2", total)
	}
	if len(allChanges) != 2 {
		t.Fatalf("slot changes = %v, want two", allChanges)
	}
	for _, c := range allChanges {
		if c.Change != -1 {
			t.Errorf("slot %d change = %d, want -1", c.Index, c.Change)
		}
	}
}

func TestShelf_NullSlotSkipped(t *testing.T) {
	initial := []*float64{ptr(100), ptr(282), nil, ptr(100)}
	sh := newTestShelf(t, initial)
	settle(sh, initial, 5)

	// Slot 0 reports null while slot 3 loses a unit.
	after := []*float64{nil, ptr(282), nil, ptr(53)}
	total := 0
	for i := 0; i < 20; i++ {
		delta, _ := sh.Update(after, time.Now())
		total += delta[pouchItem.ID]
	}

	if total != -1 {
		t.Errorf("delta = %d, want -1 from slot 3 only", total)
	}

	// Slot 0's detector state is untouched: resuming its old weight is quiet.
	resumed := []*float64{ptr(100), ptr(282), nil, ptr(53)}
	for i := 0; i < 20; i++ {
		delta, _ := sh.Update(resumed, time.Now())
		if delta[pouchItem.ID] != 0 {
			t.Fatalf("cycle %d: delta = %d, want 0 after resuming", i, delta[pouchItem.ID])
		}
	}
}

func TestShelf_ShortWeightSliceTolerated(t *testing.T) {
	sh := newTestShelf(t, []*float64{ptr(100)})

	delta, changes := sh.Update([]*float64{ptr(100), ptr(282)}, time.Now())
	if len(changes) != 0 {
		t.Errorf("changes = %v, want none", changes)
	}
	if _, ok := delta[pouchItem.ID]; !ok {
		t.Error("expected slot 0 item present in delta map")
	}
}

func TestShelf_SlotOperationErrors(t *testing.T) {
	sh := newTestShelf(t, nil)

	if _, err := sh.Calibrate(4, 0, 500, 226); !errors.Is(err, ErrSlotIndex) {
		t.Errorf("Calibrate(4): expected ErrSlotIndex, got %v", err)
	}
	if err := sh.SetConversionFactor(-1, 0.452); !errors.Is(err, ErrSlotIndex) {
		t.Errorf("SetConversionFactor(-1): expected ErrSlotIndex, got %v", err)
	}
	if err := sh.Rebaseline(7); !errors.Is(err, ErrSlotIndex) {
		t.Errorf("Rebaseline(7): expected ErrSlotIndex, got %v", err)
	}
	if _, err := sh.MostRecentRawWeight(4); !errors.Is(err, ErrSlotIndex) {
		t.Errorf("MostRecentRawWeight(4): expected ErrSlotIndex, got %v", err)
	}
}

func TestShelf_RebaselineClearsPendingState(t *testing.T) {
	initial := []*float64{ptr(100), ptr(282), nil, ptr(100)}
	sh := newTestShelf(t, initial)
	settle(sh, initial, 5)

	// Restock mid-stream: weight jumps by a clean unit multiple.
	restocked := []*float64{ptr(194), ptr(282), nil, ptr(100)}
	settle(sh, restocked, 3)

	if err := sh.Rebaseline(0); err != nil {
		t.Fatalf("Rebaseline() error: %v", err)
	}

	// After re-baselining, the new level is the baseline: no events.
	for i := 0; i < 20; i++ {
		delta, _ := sh.Update(restocked, time.Now())
		if delta[pouchItem.ID] != 0 {
			t.Fatalf("cycle %d: delta = %d, want 0 after re-baseline", i, delta[pouchItem.ID])
		}
	}
}

func TestShelf_Status(t *testing.T) {
	sh := newTestShelf(t, []*float64{ptr(100), ptr(282), nil, ptr(100)})
	sh.Update([]*float64{ptr(100), ptr(282), ptr(5), ptr(100)}, time.Now())

	statuses := sh.Status()
	if len(statuses) != config.SlotsPerShelf {
		t.Fatalf("len(statuses) = %d, want %d", len(statuses), config.SlotsPerShelf)
	}
	if statuses[0].ItemID != pouchItem.ID || statuses[0].RawWeight != 100 {
		t.Errorf("slot 0 status = %+v", statuses[0])
	}
	if statuses[2].ItemID != 0 {
		t.Errorf("slot 2 should be unassigned, got item %d", statuses[2].ItemID)
	}
}
