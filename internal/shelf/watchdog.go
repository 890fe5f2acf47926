package shelf

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/logging"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/mqtt"
	"github.com/bitsnbytes/cabinet-core/internal/observability/metrics"
)

// Publisher is the outbound transport the watchdog announces alerts on.
// Satisfied by mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Watchdog periodically checks shelf liveness.
//
// A shelf whose last report is older than the stale threshold is flagged:
// logged, counted, and announced on the alert topic. Recovery is announced
// once when the shelf reports again.
type Watchdog struct {
	registry   *Registry
	interval   time.Duration
	staleAfter time.Duration

	publisher Publisher
	log       *logging.Logger
	metrics   *metrics.Metrics

	// flagged tracks which shelves have an outstanding stale alert.
	flagged map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// WatchdogParams collects the watchdog's collaborators.
type WatchdogParams struct {
	Registry   *Registry
	Interval   time.Duration
	StaleAfter time.Duration

	// Publisher is optional; without it alerts are log-only.
	Publisher Publisher

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// NewWatchdog creates a stopped watchdog.
func NewWatchdog(p WatchdogParams) *Watchdog {
	log := p.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Watchdog{
		registry:   p.Registry,
		interval:   p.Interval,
		staleAfter: p.StaleAfter,
		publisher:  p.Publisher,
		log:        log.With("component", "watchdog"),
		metrics:    p.Metrics,
		flagged:    make(map[string]bool),
		done:       make(chan struct{}),
	}
}

// Start launches the cadence loop. The loop exits when ctx is cancelled or
// Stop is called.
func (w *Watchdog) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("watchdog started", "interval", w.interval, "stale_after", w.staleAfter)
}

// Stop terminates the loop and waits for it to exit.
func (w *Watchdog) Stop() {
	close(w.done)
	w.wg.Wait()
	w.log.Info("watchdog stopped")
}

// run is the cadence loop. Ticker-driven; never busy-waits.
func (w *Watchdog) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case now := <-ticker.C:
			w.check(now)
		}
	}
}

// check flags newly stale shelves and clears recovered ones.
func (w *Watchdog) check(now time.Time) {
	stale := w.registry.StaleShelves(now, w.staleAfter)

	staleSet := make(map[string]bool, len(stale))
	for _, id := range stale {
		staleSet[id] = true
		if !w.flagged[id] {
			w.flagged[id] = true
			w.log.Warn("shelf stale", "shelf_id", id)
			w.announce(id, "stale")
		}
	}

	for id := range w.flagged {
		if !staleSet[id] {
			delete(w.flagged, id)
			w.log.Info("shelf recovered", "shelf_id", id)
			w.announce(id, "recovered")
		}
	}

	if w.metrics != nil {
		w.metrics.StaleShelves.Set(float64(len(stale)))
	}
}

// announce publishes a staleness transition on the alert topic.
func (w *Watchdog) announce(shelfID, status string) {
	if w.publisher == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"shelf_id":  shelfID,
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.CoreAlert("shelf-stale")
	if err := w.publisher.Publish(topic, payload, 1, false); err != nil {
		w.log.Warn("publishing stale alert failed", "shelf_id", shelfID, "error", err)
	}
}
