// Package cart holds the session cart mutated by detection events.
//
// The shelf registry's event callback maps event directions onto the cart:
// an "add" event (item picked off the shelf) adds units, a "remove" event
// (item returned) takes them back out.
package cart
