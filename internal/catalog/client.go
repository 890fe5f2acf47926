package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/config"
)

// Client fetches item data from the catalog backend.
//
// When cfg.UseMockData is set, the client serves a built-in item set and
// never touches the network. This mirrors bench-test deployments where the
// backend is unavailable.
//
// Thread Safety:
//   - All methods are safe for concurrent use; the client holds no mutable state.
type Client struct {
	cfg  config.CatalogConfig
	http *http.Client
	mock map[int64]Item
}

// New creates a catalog client from configuration.
func New(cfg config.CatalogConfig) *Client {
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
	}
	if cfg.UseMockData {
		c.mock = mockItems()
	}
	return c
}

// IsReachable reports whether the catalog backend responds at all.
// Mock-mode clients are always reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	if c.cfg.UseMockData {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", c.cfg.AuthorizationKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Items returns all items known to the catalog.
//
// Returns:
//   - []Item: All items (never nil on success)
//   - error: ErrUnreachable or ErrBadResponse wrapped with detail
func (c *Client) Items(ctx context.Context) ([]Item, error) {
	if c.cfg.UseMockData {
		items := make([]Item, 0, len(c.mock))
		for _, item := range c.mock {
			items = append(items, item)
		}
		return items, nil
	}

	var items []Item
	if err := c.get(ctx, c.cfg.Endpoint+"/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Item returns a single item by ID.
//
// Returns:
//   - Item: The requested item
//   - error: ErrItemNotFound if the backend has no such item
func (c *Client) Item(ctx context.Context, id int64) (Item, error) {
	if c.cfg.UseMockData {
		item, ok := c.mock[id]
		if !ok {
			return Item{}, fmt.Errorf("%w: id %d", ErrItemNotFound, id)
		}
		return item, nil
	}

	var item Item
	err := c.get(ctx, fmt.Sprintf("%s/items/%d", c.cfg.Endpoint, id), &item)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// get performs an authorized GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.AuthorizationKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrItemNotFound, url)
	default:
		return fmt.Errorf("%w: status %d from %s", ErrBadResponse, resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding body: %w", ErrBadResponse, err)
	}
	return nil
}

// mockItems returns the built-in bench-test item set.
//
// Item 12 is the EMPTY placeholder: its enormous average weight means no
// realistic delta ever maps to a nonzero quantity.
func mockItems() map[int64]Item {
	items := []Item{
		{ID: 1, Name: "Little Bites Chocolate", UPC: "123456789012", Price: 2.10, Units: 100, AvgWeight: 47, StdWeight: 10, Thumbnail: "images/item_placeholder.png", VisionClass: "pouch"},
		{ID: 2, Name: "Little Bites Party", UPC: "234567890123", Price: 2.10, Units: 50, AvgWeight: 47, StdWeight: 10, Thumbnail: "images/item_placeholder.png", VisionClass: "pouch"},
		{ID: 3, Name: "Skittles Gummies", UPC: "345678901234", Price: 2.40, Units: 75, AvgWeight: 164.4, StdWeight: 15, Thumbnail: "images/item_placeholder.png", VisionClass: "bottle"},
		{ID: 4, Name: "Swedish Fish Mini Tropical", UPC: "456789012345", Price: 3.50, Units: 120, AvgWeight: 226, StdWeight: 10, Thumbnail: "images/item_placeholder.png", VisionClass: "pouch"},
		{ID: 5, Name: "Sour Patch Peach", UPC: "567890123456", Price: 3.50, Units: 90, AvgWeight: 228, StdWeight: 15, Thumbnail: "images/item_placeholder.png", VisionClass: "cylinder"},
		{ID: 6, Name: "Brownie Brittle Chocolate Chip", UPC: "678901234567", Price: 34.99, Units: 60, AvgWeight: 78, StdWeight: 10, Thumbnail: "images/item_placeholder.png", VisionClass: "rectangle"},
		{ID: 7, Name: "Swedish Fish Original", UPC: "789012345678", Price: 19.99, Units: 100, AvgWeight: 141, StdWeight: 10, Thumbnail: "images/item_placeholder.png", VisionClass: "pouch"},
		{ID: 8, Name: "Welch's Fruit Snacks", UPC: "890123456789", Price: 39.99, Units: 40, AvgWeight: 142, StdWeight: 14, Thumbnail: "images/item_placeholder.png", VisionClass: "rectangle"},
		{ID: 9, Name: "Sour Patch Kids", Price: 3.50, Units: 100, AvgWeight: 226, StdWeight: 20, Thumbnail: "images/item_placeholder.png", VisionClass: "sour-patch"},
		{ID: 10, Name: "12 Pack Wild Cherry Pepsi", Price: 5.50, Units: 100, AvgWeight: 4000, StdWeight: 500, Thumbnail: "images/item_placeholder.png", VisionClass: "pepsi-box"},
		{ID: 11, Name: "12 Pack Loganberry", Price: 5.50, Units: 100, AvgWeight: 4000, StdWeight: 500, Thumbnail: "images/item_placeholder.png", VisionClass: "loganberry-box"},
		{ID: 12, Name: "EMPTY", Price: 0, Units: 100, AvgWeight: 10000000, StdWeight: 0, Thumbnail: "images/item_placeholder.png"},
		{ID: 13, Name: "Wild Cherry Pepsi Can", Price: 2.50, Units: 100, AvgWeight: 200, StdWeight: 20, Thumbnail: "images/item_placeholder.png"},
		{ID: 14, Name: "Little Bites Blueberry", UPC: "123456789012", Price: 2.10, Units: 100, AvgWeight: 47, StdWeight: 10, Thumbnail: "images/item_placeholder.png", VisionClass: "pouch"},
	}

	byID := make(map[int64]Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID
}
