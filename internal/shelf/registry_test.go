package shelf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bitsnbytes/cabinet-core/internal/catalog"
)

const testShelfID = "AA:BB:CC:DD:EE:01"

// memStore is an in-memory CalibrationStore for registry tests.
type memStore struct {
	mu      sync.Mutex
	factors map[string]map[int]float64
	saves   int
	failAll bool
}

func newMemStore() *memStore {
	return &memStore{factors: make(map[string]map[int]float64)}
}

func (m *memStore) Factors(_ context.Context, shelfID string) (map[int]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errors.New("store unavailable")
	}
	out := make(map[int]float64)
	for k, v := range m.factors[shelfID] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SaveFactor(_ context.Context, shelfID string, slotIndex int, factor float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("store unavailable")
	}
	if m.factors[shelfID] == nil {
		m.factors[shelfID] = make(map[int]float64)
	}
	m.factors[shelfID][slotIndex] = factor
	m.saves++
	return nil
}

func newTestRegistry(t *testing.T, store CalibrationStore) *Registry {
	t.Helper()
	return NewRegistry(RegistryParams{
		Assignments: map[string][]int64{
			testShelfID: {1, 7, 0, 1},
		},
		Items: map[int64]catalog.Item{
			1: pouchItem,
			7: fishItem,
		},
		Engine: testEngineConfig(),
		Store:  store,
	})
}

func payload(id string, data string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"data":%s}`, id, data))
}

func TestRegistry_RouteRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{
			name:    "undecodable json",
			payload: []byte(`{"id": "x", "data":`),
			wantErr: ErrBadPayload,
		},
		{
			name:    "missing id",
			payload: []byte(`{"data":[1,2,3,4]}`),
			wantErr: ErrBadPayload,
		},
		{
			name:    "missing data",
			payload: []byte(`{"id":"AA:BB:CC:DD:EE:01"}`),
			wantErr: ErrBadPayload,
		},
		{
			name:    "too few slots",
			payload: payload(testShelfID, `[1,2,3]`),
			wantErr: ErrSlotCount,
		},
		{
			name:    "too many slots",
			payload: payload(testShelfID, `[1,2,3,4,5]`),
			wantErr: ErrSlotCount,
		},
		{
			name:    "unknown shelf",
			payload: payload("FF:FF:FF:FF:FF:FF", `[1,2,3,4]`),
			wantErr: ErrUnknownShelf,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t, nil)
			_, err := r.Route(context.Background(), tt.payload, time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Route() error = %v, want %v", err, tt.wantErr)
			}
			if r.ShelfCount() != 0 {
				t.Errorf("shelf count = %d, want 0 after rejection", r.ShelfCount())
			}
		})
	}
}

func TestRegistry_AllNullReadingKeepsShelfAlive(t *testing.T) {
	r := newTestRegistry(t, nil)
	ctx := context.Background()

	var events []Event
	r.SetOnEvent(func(e Event) { events = append(events, e) })

	at := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	stable := payload(testShelfID, `[100,282,0,100]`)
	for i := 0; i < 5; i++ {
		if _, err := r.Route(ctx, stable, at); err != nil {
			t.Fatalf("Route() error: %v", err)
		}
	}

	// Sensors misread for a few cycles: every value fails coercion. The
	// controller is still reporting, so the shelf must not go stale.
	for i := 1; i <= 3; i++ {
		if _, err := r.Route(ctx, payload(testShelfID, `[null,null,"junk",null]`), at.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Route() error on all-null reading: %v", err)
		}
	}

	statuses := r.Statuses(at.Add(3*time.Second), time.Second)
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	if got, want := statuses[0].LastReport, at.Add(3*time.Second); !got.Equal(want) {
		t.Errorf("last report = %v, want %v (all-null readings keep liveness)", got, want)
	}
	if len(events) != 0 {
		t.Errorf("events = %v, want none from all-null readings", events)
	}

	// Slot state was untouched: the stable stream resumes without emitting.
	for i := 0; i < 10; i++ {
		r.Route(ctx, stable, at.Add(4*time.Second))
	}
	if len(events) != 0 {
		t.Errorf("events = %v, want none after resuming the stable stream", events)
	}
}

func TestRegistry_LazyConstruction(t *testing.T) {
	r := newTestRegistry(t, nil)

	if r.ShelfCount() != 0 {
		t.Fatalf("shelf count = %d, want 0", r.ShelfCount())
	}

	if _, err := r.Route(context.Background(), payload(testShelfID, `[100,282,0,100]`), time.Now()); err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	if r.ShelfCount() != 1 {
		t.Errorf("shelf count = %d, want 1", r.ShelfCount())
	}

	// Repeat readings reuse the shelf.
	if _, err := r.Route(context.Background(), payload(testShelfID, `[100,282,0,100]`), time.Now()); err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	if r.ShelfCount() != 1 {
		t.Errorf("shelf count = %d, want 1 after second reading", r.ShelfCount())
	}
}

func TestRegistry_StringCoercion(t *testing.T) {
	r := newTestRegistry(t, nil)

	// Numeric strings coerce; garbage becomes null and skips its slot.
	if _, err := r.Route(context.Background(), payload(testShelfID, `["100",282,"junk",null]`), time.Now()); err != nil {
		t.Fatalf("Route() error: %v", err)
	}

	raw, err := r.MostRecentRawWeight(testShelfID, 0)
	if err != nil {
		t.Fatalf("MostRecentRawWeight() error: %v", err)
	}
	if raw != 100 {
		t.Errorf("raw weight = %v, want 100 from string coercion", raw)
	}
}

func TestRegistry_EndToEndSingleRemoval(t *testing.T) {
	r := newTestRegistry(t, nil)

	var events []Event
	r.SetOnEvent(func(e Event) { events = append(events, e) })

	ctx := context.Background()
	stable := payload(testShelfID, `[100,282,0,100]`)
	for i := 0; i < 10; i++ {
		if _, err := r.Route(ctx, stable, time.Now()); err != nil {
			t.Fatalf("Route() error: %v", err)
		}
	}
	if len(events) != 0 {
		t.Fatalf("events during stable stream = %v, want none", events)
	}

	// One 47 g pouch picked from slot 0.
	picked := payload(testShelfID, `[53,282,0,100]`)
	for i := 0; i < 20; i++ {
		if _, err := r.Route(ctx, picked, time.Now()); err != nil {
			t.Fatalf("Route() error: %v", err)
		}
	}

	if len(events) != 1 {
		t.Fatalf("events = %v, want exactly one", events)
	}
	e := events[0]
	if e.Direction != DirectionAdd {
		t.Errorf("direction = %s, want add (picked items enter the cart)", e.Direction)
	}
	if e.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", e.Quantity)
	}
	if e.ShelfID != testShelfID || e.SlotIndex != 0 || e.Item.ID != pouchItem.ID {
		t.Errorf("event = %+v", e)
	}
	if e.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("event ID not populated")
	}
}

func TestRegistry_EndToEndReturn(t *testing.T) {
	r := newTestRegistry(t, nil)

	var events []Event
	r.SetOnEvent(func(e Event) { events = append(events, e) })

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		r.Route(ctx, payload(testShelfID, `[53,282,0,100]`), time.Now())
	}
	for i := 0; i < 20; i++ {
		r.Route(ctx, payload(testShelfID, `[100,282,0,100]`), time.Now())
	}

	if len(events) != 1 {
		t.Fatalf("events = %v, want exactly one", events)
	}
	if events[0].Direction != DirectionRemove || events[0].Quantity != 1 {
		t.Errorf("event = %+v, want remove x1", events[0])
	}
}

func TestRegistry_OperationsOnUnknownShelf(t *testing.T) {
	r := newTestRegistry(t, nil)
	ctx := context.Background()

	if _, err := r.Calibrate(ctx, testShelfID, 0, 0, 500, 226); !errors.Is(err, ErrShelfNotFound) {
		t.Errorf("Calibrate: expected ErrShelfNotFound, got %v", err)
	}
	if err := r.SetConversionFactor(ctx, testShelfID, 0, 0.452); !errors.Is(err, ErrShelfNotFound) {
		t.Errorf("SetConversionFactor: expected ErrShelfNotFound, got %v", err)
	}
	if _, err := r.Tare(ctx, testShelfID, 0, 0, 500); !errors.Is(err, ErrShelfNotFound) {
		t.Errorf("Tare: expected ErrShelfNotFound, got %v", err)
	}
	if err := r.Rebaseline(testShelfID, 0); !errors.Is(err, ErrShelfNotFound) {
		t.Errorf("Rebaseline: expected ErrShelfNotFound, got %v", err)
	}
	if _, err := r.MostRecentRawWeight(testShelfID, 0); !errors.Is(err, ErrShelfNotFound) {
		t.Errorf("MostRecentRawWeight: expected ErrShelfNotFound, got %v", err)
	}
}

func TestRegistry_CalibrationPersistsAndRestores(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	r := newTestRegistry(t, store)
	r.Route(ctx, payload(testShelfID, `[100,282,0,100]`), time.Now())

	factor, err := r.Calibrate(ctx, testShelfID, 0, 0, 500, 226)
	if err != nil {
		t.Fatalf("Calibrate() error: %v", err)
	}
	if factor != 0.452 {
		t.Errorf("factor = %v, want 0.452", factor)
	}
	if store.saves != 1 {
		t.Errorf("store saves = %d, want 1", store.saves)
	}

	// A fresh registry (as after restart) restores the factor on first contact.
	r2 := newTestRegistry(t, store)
	r2.Route(ctx, payload(testShelfID, `[100,282,0,100]`), time.Now())

	statuses := r2.Statuses(time.Now(), time.Minute)
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	if got := statuses[0].Slots[0].ConversionFactor; got != 0.452 {
		t.Errorf("restored factor = %v, want 0.452", got)
	}
}

func TestRegistry_TareCalibratesAgainstReferenceWeight(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	r := newTestRegistry(t, store)
	r.Route(ctx, payload(testShelfID, `[100,282,0,100]`), time.Now())

	// Empty platform reads 0 raw, with the 226 g reference placed it reads
	// 500 raw: factor 226/500.
	factor, err := r.Tare(ctx, testShelfID, 0, 0, 500)
	if err != nil {
		t.Fatalf("Tare() error: %v", err)
	}
	if factor != 0.452 {
		t.Errorf("factor = %v, want 0.452", factor)
	}
	if store.saves != 1 {
		t.Errorf("store saves = %d, want 1 (tare writes the factor through)", store.saves)
	}

	// Identical readings cannot produce a factor.
	if _, err := r.Tare(ctx, testShelfID, 0, 100, 100); !errors.Is(err, ErrCalibration) {
		t.Errorf("Tare with identical readings: expected ErrCalibration, got %v", err)
	}
}

func TestRegistry_StoreFailureIsNonFatal(t *testing.T) {
	store := newMemStore()
	store.failAll = true
	ctx := context.Background()

	r := newTestRegistry(t, store)
	if _, err := r.Route(ctx, payload(testShelfID, `[100,282,0,100]`), time.Now()); err != nil {
		t.Fatalf("Route() should tolerate store failure, got: %v", err)
	}
	if err := r.SetConversionFactor(ctx, testShelfID, 0, 0.452); err != nil {
		t.Fatalf("SetConversionFactor() should tolerate store failure, got: %v", err)
	}
}

func TestRegistry_StaleShelves(t *testing.T) {
	r := newTestRegistry(t, nil)
	ctx := context.Background()

	at := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	r.Route(ctx, payload(testShelfID, `[100,282,0,100]`), at)

	if stale := r.StaleShelves(at.Add(time.Second), 5*time.Second); len(stale) != 0 {
		t.Errorf("stale = %v, want none within threshold", stale)
	}

	stale := r.StaleShelves(at.Add(10*time.Second), 5*time.Second)
	if len(stale) != 1 || stale[0] != testShelfID {
		t.Errorf("stale = %v, want [%s]", stale, testShelfID)
	}

	// Reporting again clears staleness.
	r.Route(ctx, payload(testShelfID, `[100,282,0,100]`), at.Add(11*time.Second))
	if stale := r.StaleShelves(at.Add(12*time.Second), 5*time.Second); len(stale) != 0 {
		t.Errorf("stale = %v, want none after recovery", stale)
	}
}

func TestCoerceWeights(t *testing.T) {
	weights := coerceWeights([]any{float64(1.5), "2.5", nil, "junk", true})

	if weights[0] == nil || *weights[0] != 1.5 {
		t.Errorf("weights[0] = %v, want 1.5", weights[0])
	}
	if weights[1] == nil || *weights[1] != 2.5 {
		t.Errorf("weights[1] = %v, want 2.5", weights[1])
	}
	for _, i := range []int{2, 3, 4} {
		if weights[i] != nil {
			t.Errorf("weights[%d] = %v, want nil", i, *weights[i])
		}
	}
}
