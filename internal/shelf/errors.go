package shelf

import "errors"

// Domain-specific errors for the detection engine.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrBadPayload is returned when an inbound message is not valid JSON or
	// is missing the id/data fields.
	ErrBadPayload = errors.New("shelf: malformed payload")

	// ErrUnknownShelf is returned when a reading arrives from an identifier
	// absent from the assignment table.
	ErrUnknownShelf = errors.New("shelf: unknown shelf identifier")

	// ErrSlotCount is returned when a reading does not carry exactly one
	// value per slot.
	ErrSlotCount = errors.New("shelf: wrong number of slot values")

	// ErrShelfNotFound is returned by registry operations addressing a shelf
	// that has not reported yet.
	ErrShelfNotFound = errors.New("shelf: shelf not found")

	// ErrSlotIndex is returned when a slot index is outside 0..3.
	ErrSlotIndex = errors.New("shelf: slot index out of range")

	// ErrCalibration is returned when a calibration measurement pair cannot
	// produce a usable conversion factor.
	ErrCalibration = errors.New("shelf: calibration failed")

	// ErrInvalidFactor is returned when a conversion factor is not positive.
	ErrInvalidFactor = errors.New("shelf: conversion factor must be positive")

	// ErrQueueFull is returned when the ingest queue cannot accept another
	// reading.
	ErrQueueFull = errors.New("shelf: ingest queue full")
)
