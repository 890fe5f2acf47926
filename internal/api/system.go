package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus represents the system status response.
type SystemStatus struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeStatus   `json:"runtime"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Shelves       ShelfStats      `json:"shelves"`
	Cart          *CartStats      `json:"cart,omitempty"`
	Database      *DatabaseStatus `json:"database,omitempty"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTStatus contains MQTT client statistics.
type MQTTStatus struct {
	Connected bool `json:"connected"`
}

// ShelfStats contains shelf registry statistics.
type ShelfStats struct {
	Constructed int `json:"constructed"`
	Stale       int `json:"stale"`
}

// CartStats contains session cart statistics.
type CartStats struct {
	Size     int     `json:"size"`
	Subtotal float64 `json:"subtotal"`
}

// DatabaseStatus contains database connection pool statistics.
type DatabaseStatus struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleSystem returns a point-in-time system status snapshot.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	now := time.Now()
	status := SystemStatus{
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(now.Sub(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Shelves: ShelfStats{
			Constructed: s.registry.ShelfCount(),
			Stale:       len(s.registry.StaleShelves(now, s.staleAfter)),
		},
	}

	if s.mqtt != nil {
		status.MQTT = MQTTStatus{Connected: s.mqtt.IsConnected()}
	}

	if s.cart != nil {
		status.Cart = &CartStats{
			Size:     s.cart.Size(),
			Subtotal: s.cart.Subtotal(),
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		status.Database = &DatabaseStatus{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, status)
}
