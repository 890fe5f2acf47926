// Package catalog provides the read-only client for the item catalog backend.
//
// Slots are stocked with catalog items; the engine needs each item's average
// and standard unit weight to turn weight deltas into quantities. In mock
// mode the client serves a fixed bench-test item set without network access.
package catalog
