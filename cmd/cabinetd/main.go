// Cabinet Core - Smart Retail Cabinet Engine
//
// This is the main entry point for the Cabinet Core daemon. It turns raw
// load-cell readings from the cabinet's shelf controllers into cart events:
// which item was picked or returned, how many units, on which shelf.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/bitsnbytes/cabinet-core/migrations"

	"github.com/bitsnbytes/cabinet-core/internal/api"
	"github.com/bitsnbytes/cabinet-core/internal/cart"
	"github.com/bitsnbytes/cabinet-core/internal/catalog"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/config"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/database"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/influxdb"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/logging"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/mqtt"
	"github.com/bitsnbytes/cabinet-core/internal/observability/metrics"
	"github.com/bitsnbytes/cabinet-core/internal/shelf"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// telemetryInterval is the cadence for writing slot weight samples to InfluxDB.
const telemetryInterval = time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Cabinet Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "shelves", len(cfg.Shelves))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	store := shelf.NewStore(db)

	// Resolve the assignment table against the catalog
	items, err := resolveItems(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("resolving catalog items: %w", err)
	}
	log.Info("catalog items resolved", "items", len(items))

	// Prometheus metrics
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	// Session cart
	sessionCart := cart.New()

	// Shelf registry
	registry := shelf.NewRegistry(shelf.RegistryParams{
		Assignments: cfg.Shelves,
		Items:       items,
		Engine:      cfg.Engine,
		Store:       store,
		Logger:      log,
		Metrics:     m,
	})

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Wire detection events: cart mutation, audit trail, MQTT publish,
	// telemetry. The callback runs on the engine's dispatcher goroutine.
	registry.SetOnEvent(func(e shelf.Event) {
		switch e.Direction {
		case shelf.DirectionAdd:
			sessionCart.Add(e.Item, e.Quantity)
		case shelf.DirectionRemove:
			sessionCart.Remove(e.Item, e.Quantity)
		}

		if recordErr := store.RecordEvent(ctx, e); recordErr != nil {
			log.Error("recording cart event failed", "event_id", e.ID.String(), "error", recordErr)
		}

		publishEvent(mqttClient, log, e)

		if influxClient != nil {
			influxClient.WriteCartEvent(e.ShelfID, e.SlotIndex, e.Item.ID, e.Quantity, string(e.Direction))
		}
	})

	// Ingest engine: bounded queue between the MQTT callback and the registry
	engine := shelf.NewEngine(shelf.EngineParams{
		Registry:  registry,
		QueueSize: cfg.Engine.QueueSize,
		Logger:    log,
		Metrics:   m,
	})
	engine.Start(ctx)
	defer engine.Stop()

	// Subscribe to shelf readings
	topics := mqtt.Topics{}
	qos := byte(cfg.MQTT.QoS)
	err = mqttClient.Subscribe(topics.ShelfData(), qos, func(_ string, payload []byte) error {
		return engine.Enqueue(payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to shelf data: %w", err)
	}
	log.Info("subscribed to shelf readings", "topic", topics.ShelfData())

	// Log aux hardware status transitions (doors, hatch)
	err = mqttClient.Subscribe(topics.AllAuxStatus(), qos, func(topic string, payload []byte) error {
		log.Info("aux status", "topic", topic, "payload", string(payload))
		return nil
	})
	if err != nil {
		log.Warn("subscribing to aux status failed", "error", err)
	}

	// Liveness watchdog
	watchdog := shelf.NewWatchdog(shelf.WatchdogParams{
		Registry:   registry,
		Interval:   cfg.WatchdogInterval(),
		StaleAfter: cfg.StaleAfter(),
		Publisher:  mqttClient,
		Logger:     log,
		Metrics:    m,
	})
	watchdog.Start(ctx)
	defer watchdog.Stop()

	// Slot weight telemetry (optional)
	if influxClient != nil {
		go telemetryLoop(ctx, registry, influxClient, cfg.StaleAfter())
	}

	// Admin API
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log,
		Registry:   registry,
		Cart:       sessionCart,
		Store:      store,
		DB:         db,
		MQTT:       mqttClient,
		Gatherer:   promReg,
		StaleAfter: cfg.StaleAfter(),
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Watchdog
	// 3. Engine
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("Cabinet Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CABINET_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CABINET_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// resolveItems builds the item lookup for every ID in the assignment table.
//
// Unresolvable item IDs leave their slots unassigned rather than failing
// startup: a single stale assignment must not take the cabinet down.
func resolveItems(ctx context.Context, cfg *config.Config, log *logging.Logger) (map[int64]catalog.Item, error) {
	client := catalog.New(cfg.Catalog)

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.CatalogTimeout())
	defer cancel()

	all, err := client.Items(fetchCtx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]catalog.Item, len(all))
	for _, item := range all {
		byID[item.ID] = item
	}

	items := make(map[int64]catalog.Item)
	for shelfID, itemIDs := range cfg.Shelves {
		for i, id := range itemIDs {
			if id == 0 {
				continue
			}
			item, ok := byID[id]
			if !ok {
				log.Warn("assignment references unknown item, slot left unassigned",
					"shelf_id", shelfID, "slot", i, "item_id", id)
				continue
			}
			items[id] = item
		}
	}
	return items, nil
}

// eventPayload is the wire form of a cart event on the core event topic.
type eventPayload struct {
	EventID    string  `json:"event_id"`
	ShelfID    string  `json:"shelf_id"`
	SlotIndex  int     `json:"slot_index"`
	ItemID     int64   `json:"item_id"`
	ItemName   string  `json:"item_name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Direction  string  `json:"direction"`
	OccurredAt string  `json:"occurred_at"`
}

// publishEvent announces a detected pick/return on the core event topic.
func publishEvent(client *mqtt.Client, log *logging.Logger, e shelf.Event) {
	payload, err := json.Marshal(eventPayload{
		EventID:    e.ID.String(),
		ShelfID:    e.ShelfID,
		SlotIndex:  e.SlotIndex,
		ItemID:     e.Item.ID,
		ItemName:   e.Item.Name,
		Price:      e.Item.Price,
		Quantity:   e.Quantity,
		Direction:  string(e.Direction),
		OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Error("marshalling cart event failed", "event_id", e.ID.String(), "error", err)
		return
	}

	topic := mqtt.Topics{}.CoreEvent(string(e.Direction))
	if err := client.Publish(topic, payload, 1, false); err != nil {
		log.Warn("publishing cart event failed", "event_id", e.ID.String(), "error", err)
	}
}

// telemetryLoop periodically samples every constructed shelf's slot weights
// into InfluxDB. Normalized grams, not raw counts.
func telemetryLoop(ctx context.Context, registry *shelf.Registry, influx *influxdb.Client, staleAfter time.Duration) {
	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, status := range registry.Statuses(now, staleAfter) {
				if status.Stale {
					continue
				}
				for _, slot := range status.Slots {
					if slot.ItemID == 0 {
						continue
					}
					influx.WriteSlotWeight(status.ID, slot.Index, slot.RawWeight*slot.ConversionFactor)
				}
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
