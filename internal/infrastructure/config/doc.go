// Package config loads and validates Cabinet Core configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by CABINET_* environment variables. The loaded
// Config is immutable after Load returns; components receive the sections
// they need at construction time rather than reading ambient global state.
//
// The shelves section is the static slot-assignment table consulted when a
// previously unseen shelf identifier first reports. It maps each hardware
// identifier to the catalog item IDs stocked in its four slots.
package config
