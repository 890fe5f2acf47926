package shelf

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bitsnbytes/cabinet-core/internal/catalog"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/config"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/logging"
	"github.com/bitsnbytes/cabinet-core/internal/observability/metrics"
)

// CalibrationStore persists per-slot conversion factors across restarts.
// Implemented by store.Store; tests use in-memory fakes.
type CalibrationStore interface {
	// Factors returns the stored factors for a shelf, keyed by slot index.
	// A shelf with no stored factors returns an empty map, not an error.
	Factors(ctx context.Context, shelfID string) (map[int]float64, error)

	// SaveFactor writes one slot's factor through.
	SaveFactor(ctx context.Context, shelfID string, slotIndex int, factor float64) error
}

// Registry owns the identifier→Shelf map and routes inbound readings.
//
// Shelves are constructed lazily: the first reading from a known identifier
// builds the shelf from the static assignment table, resolving each slot's
// item against the catalog and applying any stored calibration.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The shelf map is guarded by
//     an RWMutex; per-shelf state is guarded by each Shelf's own mutex.
type Registry struct {
	mu      sync.RWMutex
	shelves map[string]*Shelf

	assignments map[string][]int64
	items       map[int64]catalog.Item
	engineCfg   config.EngineConfig

	store   CalibrationStore
	log     *logging.Logger
	metrics *metrics.Metrics

	// onEvent receives every detected pick/return. Optional.
	onEvent func(Event)
}

// RegistryParams collects the registry's collaborators.
type RegistryParams struct {
	// Assignments is the static shelf assignment table from configuration.
	Assignments map[string][]int64

	// Items resolves slot item IDs; IDs absent from the map leave their
	// slot unassigned.
	Items map[int64]catalog.Item

	Engine config.EngineConfig

	// Store is optional; without it calibration is process-local.
	Store CalibrationStore

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(p RegistryParams) *Registry {
	log := p.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Registry{
		shelves:     make(map[string]*Shelf),
		assignments: p.Assignments,
		items:       p.Items,
		engineCfg:   p.Engine,
		store:       p.Store,
		log:         log.With("component", "registry"),
		metrics:     p.Metrics,
	}
}

// SetOnEvent registers the cart event callback.
// Call before routing begins.
func (r *Registry) SetOnEvent(fn func(Event)) {
	r.onEvent = fn
}

// reading is the wire form of a shelf/data message.
type reading struct {
	ID   string `json:"id"`
	Data []any  `json:"data"`
}

// Route decodes one shelf/data payload and applies it.
//
// Rejection cases (all non-fatal, logged and counted):
//   - undecodable JSON or missing id/data fields
//   - wrong number of slot values
//   - identifier absent from the assignment table
//
// Per-element coercion: JSON numbers pass through; numeric strings are
// parsed; anything else becomes null and skips its slot. A reading whose
// values are all null is not a rejection: the shelf's last report still
// advances (the controller is alive even when every sensor misreads), but no
// slot state mutates and no event fires.
//
// Returns:
//   - Delta: Net per-item change, nil when the payload was rejected
//   - error: The rejection reason, nil on success
func (r *Registry) Route(ctx context.Context, payload []byte, at time.Time) (Delta, error) {
	var msg reading
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.reject(metrics.ReasonDecode, "undecodable payload", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if msg.ID == "" || msg.Data == nil {
		r.reject(metrics.ReasonDecode, "payload missing id or data field")
		return nil, fmt.Errorf("%w: missing id or data field", ErrBadPayload)
	}

	if len(msg.Data) != config.SlotsPerShelf {
		r.reject(metrics.ReasonSlotCount, "wrong slot count", "shelf_id", msg.ID, "got", len(msg.Data))
		return nil, fmt.Errorf("%w: got %d values", ErrSlotCount, len(msg.Data))
	}

	if _, known := r.assignments[msg.ID]; !known {
		r.reject(metrics.ReasonUnknownShelf, "reading from unknown shelf", "shelf_id", msg.ID)
		return nil, fmt.Errorf("%w: %s", ErrUnknownShelf, msg.ID)
	}

	weights := coerceWeights(msg.Data)

	sh, err := r.shelfFor(ctx, msg.ID, weights)
	if err != nil {
		return nil, err
	}

	delta, changes := sh.Update(weights, at)
	for _, change := range changes {
		r.emit(newEvent(msg.ID, change.Index, change.Item, change.Change, at))
	}
	return delta, nil
}

// shelfFor returns the shelf, constructing it on first contact.
func (r *Registry) shelfFor(ctx context.Context, shelfID string, initial []*float64) (*Shelf, error) {
	r.mu.RLock()
	sh, ok := r.shelves[shelfID]
	r.mu.RUnlock()
	if ok {
		return sh, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have built it while we waited for the lock.
	if sh, ok := r.shelves[shelfID]; ok {
		return sh, nil
	}

	sh = r.buildShelf(ctx, shelfID, initial)
	r.shelves[shelfID] = sh

	if r.metrics != nil {
		r.metrics.ActiveShelves.Set(float64(len(r.shelves)))
	}
	r.log.Info("shelf constructed", "shelf_id", shelfID, "shelves", len(r.shelves))
	return sh, nil
}

// buildShelf assembles a shelf's slots from the assignment table, catalog
// items, and stored calibration. Caller holds the write lock.
func (r *Registry) buildShelf(ctx context.Context, shelfID string, initial []*float64) *Shelf {
	var stored map[int]float64
	if r.store != nil {
		var err error
		stored, err = r.store.Factors(ctx, shelfID)
		if err != nil {
			r.log.Warn("loading stored calibration failed", "shelf_id", shelfID, "error", err)
		}
	}

	itemIDs := r.assignments[shelfID]
	var slots [config.SlotsPerShelf]*Slot
	for i := 0; i < config.SlotsPerShelf; i++ {
		var item catalog.Item
		if i < len(itemIDs) {
			item = r.items[itemIDs[i]]
		}
		slot := NewSlot(item, r.engineCfg)
		if factor, ok := stored[i]; ok {
			if err := slot.SetConversionFactor(factor); err != nil {
				r.log.Warn("stored factor rejected", "shelf_id", shelfID, "slot", i, "factor", factor)
			}
		}
		slots[i] = slot
	}

	return NewShelf(shelfID, slots, initial)
}

// emit delivers an event to the callback and counts it.
func (r *Registry) emit(e Event) {
	if r.metrics != nil {
		r.metrics.CartEvents.WithLabelValues(string(e.Direction)).Add(float64(e.Quantity))
	}
	r.log.Info("cart event",
		"event_id", e.ID.String(),
		"shelf_id", e.ShelfID,
		"slot", e.SlotIndex,
		"item", e.Item.Name,
		"quantity", e.Quantity,
		"direction", string(e.Direction),
	)
	if r.onEvent != nil {
		r.onEvent(e)
	}
}

// reject logs and counts a rejected reading.
func (r *Registry) reject(reason, msg string, args ...any) {
	if r.metrics != nil {
		r.metrics.ReadingsRejected.WithLabelValues(reason).Inc()
	}
	r.log.Warn(msg, args...)
}

// Calibrate runs the two-point calibration on one slot and writes the result
// through the calibration store.
func (r *Registry) Calibrate(ctx context.Context, shelfID string, slotIndex int, zeroRaw, loadedRaw, knownGrams float64) (float64, error) {
	sh, err := r.lookup(shelfID)
	if err != nil {
		return 0, err
	}
	factor, err := sh.Calibrate(slotIndex, zeroRaw, loadedRaw, knownGrams)
	if err != nil {
		return 0, err
	}
	r.persistFactor(ctx, shelfID, slotIndex, factor)
	return factor, nil
}

// SetConversionFactor installs a factor on one slot and writes it through.
func (r *Registry) SetConversionFactor(ctx context.Context, shelfID string, slotIndex int, factor float64) error {
	sh, err := r.lookup(shelfID)
	if err != nil {
		return err
	}
	if err := sh.SetConversionFactor(slotIndex, factor); err != nil {
		return err
	}
	r.persistFactor(ctx, shelfID, slotIndex, factor)
	return nil
}

// Tare runs the two-point calibration on one slot against the configured
// reference tare weight and writes the resulting factor through the store.
// The slot's bench procedure: read the empty platform, place the reference
// tare object, read again.
func (r *Registry) Tare(ctx context.Context, shelfID string, slotIndex int, zeroRaw, loadedRaw float64) (float64, error) {
	return r.Calibrate(ctx, shelfID, slotIndex, zeroRaw, loadedRaw, r.engineCfg.TareWeightGrams)
}

// Rebaseline re-baselines one slot on its most recent reading. Use after
// restocking, when the new load should become the zero-event level.
func (r *Registry) Rebaseline(shelfID string, slotIndex int) error {
	sh, err := r.lookup(shelfID)
	if err != nil {
		return err
	}
	return sh.Rebaseline(slotIndex)
}

// MostRecentRawWeight returns the raw value of one slot's latest reading.
func (r *Registry) MostRecentRawWeight(shelfID string, slotIndex int) (float64, error) {
	sh, err := r.lookup(shelfID)
	if err != nil {
		return 0, err
	}
	return sh.MostRecentRawWeight(slotIndex)
}

// ShelfStatus is a point-in-time snapshot of one shelf for the admin API.
type ShelfStatus struct {
	ID         string       `json:"id"`
	LastReport time.Time    `json:"last_report"`
	Stale      bool         `json:"stale"`
	Slots      []SlotStatus `json:"slots"`
}

// Statuses snapshots every constructed shelf, ordered by identifier.
// Shelves whose last report is older than staleAfter are flagged stale.
func (r *Registry) Statuses(now time.Time, staleAfter time.Duration) []ShelfStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ShelfStatus, 0, len(r.shelves))
	for id, sh := range r.shelves {
		last := sh.LastReport()
		statuses = append(statuses, ShelfStatus{
			ID:         id,
			LastReport: last,
			Stale:      now.Sub(last) > staleAfter,
			Slots:      sh.Status(),
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

// StaleShelves returns the identifiers of shelves whose last report is older
// than staleAfter, ordered by identifier.
func (r *Registry) StaleShelves(now time.Time, staleAfter time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []string
	for id, sh := range r.shelves {
		if now.Sub(sh.LastReport()) > staleAfter {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}

// ShelfCount returns the number of constructed shelves.
func (r *Registry) ShelfCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shelves)
}

// lookup finds a constructed shelf.
func (r *Registry) lookup(shelfID string) (*Shelf, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sh, ok := r.shelves[shelfID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrShelfNotFound, shelfID)
	}
	return sh, nil
}

// persistFactor writes a factor through the store, logging failures.
func (r *Registry) persistFactor(ctx context.Context, shelfID string, slotIndex int, factor float64) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveFactor(ctx, shelfID, slotIndex, factor); err != nil {
		r.log.Error("persisting conversion factor failed",
			"shelf_id", shelfID, "slot", slotIndex, "error", err)
	}
}

// coerceWeights converts raw JSON values to per-slot weights.
// Numbers pass through; numeric strings parse; everything else is null.
func coerceWeights(data []any) []*float64 {
	weights := make([]*float64, len(data))
	for i, v := range data {
		switch value := v.(type) {
		case float64:
			f := value
			weights[i] = &f
		case string:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				weights[i] = &f
			}
		case json.Number:
			if f, err := value.Float64(); err == nil {
				weights[i] = &f
			}
		}
	}
	return weights
}
