package backend

import (
	"context"
	"sync"
	"time"

	"github.com/iulianpascalau/netgazer/aggregator"
	"github.com/iulianpascalau/netgazer/core"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("backend")

const (
	defaultIdleTimeout         = time.Second
	defaultReconnectRetries    = 5
	defaultReconnectBackoff    = 500 * time.Millisecond
	defaultReconnectBackoffCap = 8 * time.Second
)

// ArgsBackend defines the backend arguments. Zero fields fall back to defaults.
type ArgsBackend struct {
	MaxHistory          int
	RateWindowMicros    uint64
	IdleTimeout         time.Duration
	ReconnectRetries    uint32
	ReconnectBackoff    time.Duration
	ReconnectBackoffCap time.Duration
}

type receiveResult struct {
	batch *core.MetricBatch
	err   error
}

// Backend wraps the metric aggregator for concurrent use: one ingestion
// goroutine writes, any number of caller goroutines read, each taking a brief
// exclusive turn on the data mutex. The mutex is never held across a blocking
// operation, and update callbacks run outside it so a callback that re-enters
// the read API cannot deadlock.
type Backend struct {
	mutData    sync.Mutex
	aggregator *aggregator.MetricAggregator

	mutCallbacks sync.Mutex
	callbacks    []func()

	mutLifecycle sync.Mutex
	cancel       func()
	endpoint     Endpoint
	wg           sync.WaitGroup

	idleTimeout         time.Duration
	reconnectRetries    uint32
	reconnectBackoff    time.Duration
	reconnectBackoffCap time.Duration
}

// NewBackend creates a backend around a fresh aggregator
func NewBackend(args ArgsBackend) (*Backend, error) {
	if args.MaxHistory == 0 {
		args.MaxHistory = aggregator.DefaultMaxHistory
	}
	if args.RateWindowMicros == 0 {
		args.RateWindowMicros = aggregator.DefaultRateWindowMicros
	}
	if args.IdleTimeout == 0 {
		args.IdleTimeout = defaultIdleTimeout
	}
	if args.ReconnectRetries == 0 {
		args.ReconnectRetries = defaultReconnectRetries
	}
	if args.ReconnectBackoff == 0 {
		args.ReconnectBackoff = defaultReconnectBackoff
	}
	if args.ReconnectBackoffCap == 0 {
		args.ReconnectBackoffCap = defaultReconnectBackoffCap
	}

	agg, err := aggregator.NewMetricAggregator(args.MaxHistory, args.RateWindowMicros)
	if err != nil {
		return nil, err
	}

	return &Backend{
		aggregator:          agg,
		idleTimeout:         args.IdleTimeout,
		reconnectRetries:    args.ReconnectRetries,
		reconnectBackoff:    args.ReconnectBackoff,
		reconnectBackoffCap: args.ReconnectBackoffCap,
	}, nil
}

// Connect establishes the endpoint's feed synchronously and, on success,
// starts the single ingestion goroutine. Only one connection can be active.
func (b *Backend) Connect(endpoint Endpoint) error {
	if check.IfNil(endpoint) {
		return ErrNilEndpoint
	}

	b.mutLifecycle.Lock()
	defer b.mutLifecycle.Unlock()

	if b.cancel != nil {
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithCancel(context.Background())

	err := endpoint.Connect(ctx)
	if err != nil {
		cancel()
		return err
	}

	b.cancel = cancel
	b.endpoint = endpoint

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.ingestLoop(ctx, endpoint)
	}()

	return nil
}

// ingestLoop races three outcomes each iteration: the next batch, the idle
// timeout and the shutdown signal. Receive errors and idle timeouts share the
// reconnect path; shutdown abandons any in-flight receive.
func (b *Backend) ingestLoop(ctx context.Context, endpoint Endpoint) {
	idleTimer := time.NewTimer(b.idleTimeout)
	defer idleTimer.Stop()

	for {
		results := make(chan receiveResult, 1)
		recvCtx, cancelRecv := context.WithCancel(ctx)

		go func() {
			batch, err := endpoint.Receive(recvCtx)
			results <- receiveResult{batch: batch, err: err}
		}()

		doReconnect := false

		select {
		case result := <-results:
			if result.err != nil {
				log.Warn("endpoint receive failed", "error", result.err)
				doReconnect = true
				break
			}

			resetTimer(idleTimer, b.idleTimeout)
			b.applyBatch(result.batch)
		case <-idleTimer.C:
			log.Warn("idle timeout elapsed, no batch received", "timeout", b.idleTimeout)
			doReconnect = true
			resetTimer(idleTimer, b.idleTimeout)
		case <-ctx.Done():
			cancelRecv()
			log.Debug("ingestion loop stopping")
			return
		}

		cancelRecv()

		if doReconnect {
			if !b.reconnectWithBackoff(ctx, endpoint) {
				return
			}

			resetTimer(idleTimer, b.idleTimeout)
		}
	}
}

// applyBatch takes one exclusive turn on the data mutex for the whole batch,
// then notifies the registered callbacks in registration order, outside the lock
func (b *Backend) applyBatch(batch *core.MetricBatch) {
	b.mutData.Lock()
	b.aggregator.HandleMetrics(batch.TimestampMicro, batch.Metrics)
	b.mutData.Unlock()

	log.Trace("batch applied", "source", batch.Source,
		"timestamp", batch.TimestampMicro, "num metrics", len(batch.Metrics))

	b.mutCallbacks.Lock()
	callbacks := make([]func(), len(b.callbacks))
	copy(callbacks, b.callbacks)
	b.mutCallbacks.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

// reconnectWithBackoff retries the endpoint's reconnect with exponentially
// growing delays. The retry budget is per incident: the next successful
// receive starts from a full budget again. Exhausting the budget stops the
// ingestion loop; the accumulated aggregator state stays readable.
func (b *Backend) reconnectWithBackoff(ctx context.Context, endpoint Endpoint) bool {
	delay := b.reconnectBackoff

	for attempt := uint32(1); attempt <= b.reconnectRetries; attempt++ {
		err := endpoint.Reconnect(ctx)
		if err == nil {
			log.Debug("endpoint reconnected", "attempt", attempt)
			return true
		}

		log.Warn("endpoint reconnect failed", "attempt", attempt,
			"of", b.reconnectRetries, "retrying in", delay, "error", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		delay *= 2
		if delay > b.reconnectBackoffCap {
			delay = b.reconnectBackoffCap
		}
	}

	log.Error("giving up reconnecting, ingestion stops", "attempts", b.reconnectRetries)

	return false
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

// RegisterUpdateCallback registers a handler invoked synchronously after every
// successfully applied batch. Handlers run outside the data lock and may use
// the read API.
func (b *Backend) RegisterUpdateCallback(callback func()) {
	if callback == nil {
		return
	}

	b.mutCallbacks.Lock()
	b.callbacks = append(b.callbacks, callback)
	b.mutCallbacks.Unlock()
}

// Snapshot returns the current value of every known metric, in unspecified order
func (b *Backend) Snapshot() []core.Metric {
	b.mutData.Lock()
	defer b.mutData.Unlock()

	return b.aggregator.Snapshot()
}

// WalkMetrics invokes the handler with the current value of every known metric
// while holding the data lock: handlers must not block or re-enter the backend
func (b *Backend) WalkMetrics(handler func(metric core.Metric)) {
	b.mutData.Lock()
	defer b.mutData.Unlock()

	b.aggregator.WalkMetrics(handler)
}

// GetMetric returns the current value of a label
func (b *Backend) GetMetric(label string) (core.Metric, bool) {
	b.mutData.Lock()
	defer b.mutData.Unlock()

	return b.aggregator.GetMetric(label)
}

// GetHistory returns a plottable window over a metric's retained history
func (b *Backend) GetHistory(label string, maxLen int) ([]aggregator.HistoryPoint, float64, float64, bool) {
	b.mutData.Lock()
	defer b.mutData.Unlock()

	return b.aggregator.GetHistory(label, maxLen)
}

// ParentLabel returns the source label a derived metric was computed from
func (b *Backend) ParentLabel(label string) (string, bool) {
	b.mutData.Lock()
	defer b.mutData.Unlock()

	return b.aggregator.ParentLabel(label)
}

// LastTimestamp returns the timestamp of the most recently ingested batch, in microseconds
func (b *Backend) LastTimestamp() uint64 {
	b.mutData.Lock()
	defer b.mutData.Unlock()

	return b.aggregator.LastTimestamp()
}

// Close signals the ingestion goroutine, waits for it to stop and releases the
// endpoint. It is idempotent and safe to call without a prior Connect.
func (b *Backend) Close() error {
	b.mutLifecycle.Lock()
	defer b.mutLifecycle.Unlock()

	if b.cancel == nil {
		return nil
	}

	b.cancel()
	b.cancel = nil
	b.wg.Wait()

	err := b.endpoint.Close()
	b.endpoint = nil

	return err
}

// IsInterfaceNil returns true if the value under the interface is nil
func (b *Backend) IsInterfaceNil() bool {
	return b == nil
}
