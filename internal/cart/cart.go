package cart

import (
	"sort"
	"sync"

	"github.com/bitsnbytes/cabinet-core/internal/catalog"
)

// Line is one cart entry: an item and how many units of it are held.
type Line struct {
	Item     catalog.Item
	Quantity int
}

// Cart is the in-process session cart the detection engine mutates.
//
// Picks add units, returns remove them. A line whose quantity reaches zero
// is dropped, so the cart never reports negative holdings.
//
// Thread Safety:
//   - Safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	lines map[int64]*Line
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[int64]*Line)}
}

// Add puts quantity units of an item into the cart.
// Non-positive quantities are ignored.
func (c *Cart) Add(item catalog.Item, quantity int) {
	if quantity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if line, ok := c.lines[item.ID]; ok {
		line.Quantity += quantity
		return
	}
	c.lines[item.ID] = &Line{Item: item, Quantity: quantity}
}

// Remove takes quantity units of an item out of the cart, clamping at zero.
// Removing an item the cart doesn't hold is a no-op.
func (c *Cart) Remove(item catalog.Item, quantity int) {
	if quantity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.lines[item.ID]
	if !ok {
		return
	}
	line.Quantity -= quantity
	if line.Quantity <= 0 {
		delete(c.lines, item.ID)
	}
}

// Quantity returns how many units of an item the cart holds.
func (c *Cart) Quantity(itemID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line, ok := c.lines[itemID]; ok {
		return line.Quantity
	}
	return 0
}

// Lines returns a snapshot of the cart's contents, sorted by item ID for
// stable presentation.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, 0, len(c.lines))
	for _, line := range c.lines {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// Subtotal returns the price of everything in the cart.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, line := range c.lines {
		total += line.Item.Price * float64(line.Quantity)
	}
	return total
}

// Size returns the total unit count across all lines.
func (c *Cart) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, line := range c.lines {
		n += line.Quantity
	}
	return n
}

// Clear empties the cart, as at the end of a session.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[int64]*Line)
}
