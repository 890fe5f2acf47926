package shelf

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/bitsnbytes/cabinet-core/internal/catalog"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/config"
)

// latchState is the hysteresis latch of a slot.
//
// After emitting an event in one direction, the slot stays latched in that
// direction and suppresses repeats until it has seen enough quiet cycles.
type latchState int

const (
	latchIdle latchState = iota
	latchPendingPositive
	latchPendingNegative
)

// Slot detects unit-quantity changes on a single load-cell platform.
//
// Each raw reading is normalized with the conversion factor, smoothed with a
// rolling median window, and compared against a lagged reference weight. When
// the delta lands near a whole multiple of the stocked item's unit weight,
// the slot emits the inferred quantity once and latches.
//
// Not safe for concurrent use; the owning Shelf serialises access.
type Slot struct {
	item             catalog.Item
	conversionFactor float64

	// window is the rolling median buffer, newest first.
	window []float64

	// prevSmoothed is the lagged reference: after each update it receives
	// the value evicted from the window, so it trails the live median by a
	// full window length.
	prevSmoothed float64

	prevRaw float64

	state       latchState
	quietCycles int

	debounceCycles  int
	extraneousLimit float64
}

// NewSlot creates a Slot stocked with the given item.
//
// A zero-value item (AvgWeight 0) marks the slot unassigned: weights are
// still tracked but no events are ever emitted for it.
func NewSlot(item catalog.Item, cfg config.EngineConfig) *Slot {
	return &Slot{
		item:             item,
		conversionFactor: cfg.DefaultConversionFactor,
		window:           make([]float64, cfg.WindowSize),
		debounceCycles:   cfg.DebounceCycles,
		extraneousLimit:  cfg.ExtraneousLimit,
	}
}

// Item returns the catalog item stocked in this slot.
func (s *Slot) Item() catalog.Item {
	return s.item
}

// ConversionFactor returns the current raw-to-gram multiplier.
func (s *Slot) ConversionFactor() float64 {
	return s.conversionFactor
}

// PreviousRawWeight returns the raw value of the most recent reading.
func (s *Slot) PreviousRawWeight() float64 {
	return s.prevRaw
}

// Calibrate derives and installs the conversion factor from a two-point
// measurement: the raw reading with an empty platform, the raw reading with a
// reference object loaded, and that object's known weight in grams.
//
// Returns:
//   - float64: The installed factor
//   - error: ErrCalibration if the readings are unusable; the previous
//     factor is left untouched
func (s *Slot) Calibrate(zeroRaw, loadedRaw, knownGrams float64) (float64, error) {
	if loadedRaw == zeroRaw {
		return s.conversionFactor, fmt.Errorf("%w: loaded and zero readings are identical (%v)", ErrCalibration, zeroRaw)
	}
	factor := knownGrams / (loadedRaw - zeroRaw)
	if factor <= 0 {
		return s.conversionFactor, fmt.Errorf("%w: computed factor %v is not positive", ErrCalibration, factor)
	}
	s.conversionFactor = factor
	return factor, nil
}

// SetConversionFactor installs a factor directly (e.g. restored from the
// calibration store).
//
// Returns:
//   - error: ErrInvalidFactor if factor is not positive
func (s *Slot) SetConversionFactor(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFactor, factor)
	}
	s.conversionFactor = factor
	return nil
}

// seedBaseline initialises the window and the lagged reference, in grams.
// Called once at shelf construction with the normalized first reading, so a
// stable load produces no transient events while the window warms up.
func (s *Slot) seedBaseline(grams float64) {
	for i := range s.window {
		s.window[i] = grams
	}
	s.prevSmoothed = grams
}

// rebaseline resets the slot on its most recent reading: the window and the
// lagged reference are filled with the current normalized weight and any
// pending latch is cleared. Use after restocking.
func (s *Slot) rebaseline() {
	normalized := s.prevRaw * s.conversionFactor
	for i := range s.window {
		s.window[i] = normalized
	}
	s.prevSmoothed = normalized
	s.state = latchIdle
	s.quietCycles = 0
}

// Update processes one raw reading and returns the net unit change for the
// stocked item: positive when units were placed back, negative when units
// were picked, zero otherwise.
//
// The pipeline per reading:
//  1. Record the raw value.
//  2. Normalize to grams with the conversion factor.
//  3. Push into the median window, evicting the oldest sample.
//  4. Delta = median(window) - lagged reference.
//  5. Discard deltas beyond the extraneous limit (sensor glitch); the
//     reference still advances.
//  6. Reduce the delta modulo the item's unit weight; only remainders within
//     one standard deviation of zero or of a full unit qualify.
//  7. Quantity = delta / unit weight, rounded.
//  8. The hysteresis latch emits each quantity once and suppresses repeats
//     until enough quiet cycles pass.
//  9. The lagged reference receives the evicted window value.
func (s *Slot) Update(raw float64) int {
	s.prevRaw = raw
	normalized := raw * s.conversionFactor

	evicted := s.window[len(s.window)-1]
	copy(s.window[1:], s.window[:len(s.window)-1])
	s.window[0] = normalized
	smoothed := median(s.window)

	delta := smoothed - s.prevSmoothed
	s.prevSmoothed = evicted

	if math.Abs(delta) > s.extraneousLimit {
		return 0
	}
	if s.item.AvgWeight <= 0 {
		// Unassigned slot: track weight, never detect.
		return 0
	}

	remainder := floorMod(delta, s.item.AvgWeight)
	if s.item.AvgWeight-s.item.StdWeight > remainder && remainder > s.item.StdWeight {
		// Mid-band remainder: delta is not a clean multiple of the unit
		// weight, likely a hand resting on the platform.
		return 0
	}

	quantity := int(math.Round(delta / s.item.AvgWeight))
	switch {
	case quantity > 0:
		if s.state != latchPendingPositive {
			s.state = latchPendingPositive
			s.quietCycles = 0
			return quantity
		}
	case quantity < 0:
		if s.state != latchPendingNegative {
			s.state = latchPendingNegative
			s.quietCycles = 0
			return quantity
		}
	default:
		if s.quietCycles >= s.debounceCycles {
			s.state = latchIdle
			s.quietCycles = 0
		} else {
			s.quietCycles++
		}
	}
	return 0
}

// median returns the rolling median of the window.
// LinInterp at p=0.5 averages the two middle samples for even-length windows.
func median(window []float64) float64 {
	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.LinInterp, sorted, nil)
}

// floorMod is the non-negative remainder of x mod y (y > 0).
// math.Mod keeps the dividend's sign, which would break the band test for
// negative deltas.
func floorMod(x, y float64) float64 {
	r := math.Mod(x, y)
	if r < 0 {
		r += y
	}
	return r
}
