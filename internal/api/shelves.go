package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bitsnbytes/cabinet-core/internal/shelf"
)

// handleListShelves returns a snapshot of every constructed shelf.
func (s *Server) handleListShelves(w http.ResponseWriter, _ *http.Request) {
	statuses := s.registry.Statuses(time.Now(), s.staleAfter)
	writeJSON(w, http.StatusOK, map[string]any{
		"shelves": statuses,
		"count":   len(statuses),
	})
}

// handleSlotWeight returns the most recent raw reading of one slot.
func (s *Server) handleSlotWeight(w http.ResponseWriter, r *http.Request) {
	shelfID, slotIndex, ok := slotParams(w, r)
	if !ok {
		return
	}

	raw, err := s.registry.MostRecentRawWeight(shelfID, slotIndex)
	if err != nil {
		s.writeShelfError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shelf_id":   shelfID,
		"slot_index": slotIndex,
		"raw_weight": raw,
	})
}

// SetConversionFactorRequest carries a manually-set conversion factor.
type SetConversionFactorRequest struct {
	Factor float64 `json:"factor"`
}

// handleSetConversionFactor installs a conversion factor on one slot.
func (s *Server) handleSetConversionFactor(w http.ResponseWriter, r *http.Request) {
	shelfID, slotIndex, ok := slotParams(w, r)
	if !ok {
		return
	}

	var req SetConversionFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.SetConversionFactor(r.Context(), shelfID, slotIndex, req.Factor); err != nil {
		s.writeShelfError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shelf_id":          shelfID,
		"slot_index":        slotIndex,
		"conversion_factor": req.Factor,
	})
}

// CalibrateRequest carries the two-point calibration inputs: the raw reading
// of the empty platform, the raw reading with a reference object placed, and
// that object's known weight in grams.
type CalibrateRequest struct {
	ZeroRaw    float64 `json:"zero_raw"`
	LoadedRaw  float64 `json:"loaded_raw"`
	KnownGrams float64 `json:"known_grams"`
}

// handleCalibrate runs the two-point calibration on one slot.
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	shelfID, slotIndex, ok := slotParams(w, r)
	if !ok {
		return
	}

	var req CalibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	factor, err := s.registry.Calibrate(r.Context(), shelfID, slotIndex, req.ZeroRaw, req.LoadedRaw, req.KnownGrams)
	if err != nil {
		s.writeShelfError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shelf_id":          shelfID,
		"slot_index":        slotIndex,
		"conversion_factor": factor,
	})
}

// TareRequest carries the tare readings: the raw value of the empty platform
// and the raw value with the reference tare object placed. The object's known
// weight comes from configuration.
type TareRequest struct {
	ZeroWeight   float64 `json:"zero_weight"`
	LoadedWeight float64 `json:"loaded_weight"`
}

// handleTare calibrates one slot against the reference tare object and
// returns the resulting conversion factor.
func (s *Server) handleTare(w http.ResponseWriter, r *http.Request) {
	shelfID, slotIndex, ok := slotParams(w, r)
	if !ok {
		return
	}

	var req TareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	factor, err := s.registry.Tare(r.Context(), shelfID, slotIndex, req.ZeroWeight, req.LoadedWeight)
	if err != nil {
		s.writeShelfError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shelf_id":          shelfID,
		"slot_index":        slotIndex,
		"conversion_factor": factor,
	})
}

// handleRebaseline re-baselines one slot on its most recent reading.
func (s *Server) handleRebaseline(w http.ResponseWriter, r *http.Request) {
	shelfID, slotIndex, ok := slotParams(w, r)
	if !ok {
		return
	}

	if err := s.registry.Rebaseline(shelfID, slotIndex); err != nil {
		s.writeShelfError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleEventCount returns the audited cart event count for one shelf.
func (s *Server) handleEventCount(w http.ResponseWriter, r *http.Request) {
	shelfID := chi.URLParam(r, "id")

	count, err := s.store.EventCount(r.Context(), shelfID)
	if err != nil {
		s.logger.Error("counting cart events failed", "shelf_id", shelfID, "error", err)
		writeInternalError(w, "failed to count cart events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shelf_id": shelfID,
		"count":    count,
	})
}

// slotParams extracts the shelf identifier and slot index from the URL.
// Writes a 400 response and returns ok=false when the index is not a number.
func slotParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	shelfID := chi.URLParam(r, "id")
	slotIndex, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "slot index must be an integer")
		return "", 0, false
	}
	return shelfID, slotIndex, true
}

// writeShelfError maps registry errors onto HTTP responses.
func (s *Server) writeShelfError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, shelf.ErrSlotIndex):
		writeBadRequest(w, err.Error())
	case errors.Is(err, shelf.ErrInvalidFactor), errors.Is(err, shelf.ErrCalibration):
		writeValidationError(w, err.Error())
	default:
		s.logger.Error("shelf operation failed", "error", err)
		writeInternalError(w, "shelf operation failed")
	}
}
