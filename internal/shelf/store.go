package shelf

import (
	"context"
	"fmt"
	"time"

	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/database"
)

// Store is the SQLite-backed persistence for the detection engine: conversion
// factors (so calibration survives restart) and the append-only cart event
// audit trail.
//
// Thread Safety:
//   - Safe for concurrent use; the underlying pool serialises writers.
type Store struct {
	db *database.DB
}

// NewStore creates a store on an opened, migrated database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Factors returns the stored conversion factors for a shelf, keyed by slot
// index. A shelf with no stored factors returns an empty map.
func (s *Store) Factors(ctx context.Context, shelfID string) (map[int]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT slot_index, conversion_factor FROM slot_calibrations WHERE shelf_id = ?",
		shelfID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying calibrations: %w", err)
	}
	defer rows.Close()

	factors := make(map[int]float64)
	for rows.Next() {
		var slotIndex int
		var factor float64
		if err := rows.Scan(&slotIndex, &factor); err != nil {
			return nil, fmt.Errorf("scanning calibration row: %w", err)
		}
		factors[slotIndex] = factor
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calibrations: %w", err)
	}
	return factors, nil
}

// SaveFactor upserts one slot's conversion factor.
func (s *Store) SaveFactor(ctx context.Context, shelfID string, slotIndex int, factor float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slot_calibrations (shelf_id, slot_index, conversion_factor, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (shelf_id, slot_index)
		DO UPDATE SET conversion_factor = excluded.conversion_factor,
		              updated_at = excluded.updated_at
	`, shelfID, slotIndex, factor, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving calibration: %w", err)
	}
	return nil
}

// RecordEvent appends a cart event to the audit trail.
func (s *Store) RecordEvent(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_events (id, shelf_id, slot_index, item_id, quantity, direction, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID.String(),
		e.ShelfID,
		e.SlotIndex,
		e.Item.ID,
		e.Quantity,
		string(e.Direction),
		e.OccurredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording cart event: %w", err)
	}
	return nil
}

// EventCount returns the number of audited cart events for a shelf.
// Used by tests and the admin API.
func (s *Store) EventCount(ctx context.Context, shelfID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cart_events WHERE shelf_id = ?", shelfID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting cart events: %w", err)
	}
	return count, nil
}
