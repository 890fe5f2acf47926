package shelf

import (
	"context"
	"sync"
	"time"

	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/logging"
	"github.com/bitsnbytes/cabinet-core/internal/observability/metrics"
)

// Engine is the bounded ingest queue between the MQTT transport and the
// registry.
//
// The transport callback enqueues and returns immediately; a single
// dispatcher goroutine drains the queue and routes readings, so all shelf
// mutation happens from one writer. When the queue is full the reading is
// dropped and counted rather than blocking the transport.
type Engine struct {
	queue    chan inbound
	registry *Registry

	log     *logging.Logger
	metrics *metrics.Metrics

	done chan struct{}
	wg   sync.WaitGroup
}

// inbound is one queued reading with its arrival time.
type inbound struct {
	payload []byte
	at      time.Time
}

// EngineParams collects the engine's collaborators.
type EngineParams struct {
	Registry  *Registry
	QueueSize int
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
}

// NewEngine creates a stopped engine.
func NewEngine(p EngineParams) *Engine {
	log := p.Logger
	if log == nil {
		log = logging.Default()
	}
	size := p.QueueSize
	if size < 1 {
		size = 1
	}
	return &Engine{
		queue:    make(chan inbound, size),
		registry: p.Registry,
		log:      log.With("component", "engine"),
		metrics:  p.Metrics,
		done:     make(chan struct{}),
	}
}

// Enqueue accepts one raw shelf/data payload.
//
// Safe to call from transport callbacks: it never blocks. The payload is
// copied because paho reuses message buffers.
//
// Returns:
//   - error: ErrQueueFull when the reading was dropped
func (e *Engine) Enqueue(payload []byte) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	select {
	case e.queue <- inbound{payload: buf, at: time.Now()}:
		if e.metrics != nil {
			e.metrics.MessagesReceived.Inc()
			e.metrics.QueueDepth.Set(float64(len(e.queue)))
		}
		return nil
	default:
		if e.metrics != nil {
			e.metrics.MessagesDropped.Inc()
		}
		e.log.Warn("ingest queue full, reading dropped")
		return ErrQueueFull
	}
}

// Start launches the dispatcher goroutine.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.dispatch(ctx)
	e.log.Info("engine started", "queue_size", cap(e.queue))
}

// Stop terminates the dispatcher and waits for it to exit.
// Queued readings that were not yet dispatched are discarded.
func (e *Engine) Stop() {
	close(e.done)
	e.wg.Wait()
	e.log.Info("engine stopped")
}

// dispatch is the single-writer loop draining the queue into the registry.
func (e *Engine) dispatch(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case msg := <-e.queue:
			if e.metrics != nil {
				e.metrics.QueueDepth.Set(float64(len(e.queue)))
			}
			start := time.Now()
			// Rejections are already logged and counted by the registry.
			_, _ = e.registry.Route(ctx, msg.payload, msg.at)
			if e.metrics != nil {
				e.metrics.CycleDuration.Observe(time.Since(start).Seconds())
			}
		}
	}
}
