package catalog

// Item is a stock-keeping unit known to the catalog backend.
//
// AvgWeight and StdWeight describe the per-unit weight distribution in grams
// and drive the detection engine's quantity inference. An item with an
// implausibly large AvgWeight (the "EMPTY" placeholder) effectively disables
// detection for slots stocked with it.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	UPC         string  `json:"upc"`
	Price       float64 `json:"price"`
	Units       int     `json:"units"`
	AvgWeight   float64 `json:"avg_weight"`
	StdWeight   float64 `json:"std_weight"`
	Thumbnail   string  `json:"thumbnail"`
	VisionClass string  `json:"vision_class"`
}
