package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
	"github.com/docbook/booking-system/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes identity changes to a fixed set of workers using
// consistent hashing on the user ID, guaranteeing per-user ordering while
// different users are handled in parallel.
type Dispatcher struct {
	workers []chan domain.IdentityChange
	handler ports.IdentityChangeHandler
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.IdentityChangeHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.IdentityChange, numWorkers),
		handler: handler,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.IdentityChange, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue sends a change to the worker responsible for its user.
// The call is non-blocking up to channelBuffer capacity. It has the
// signature of an identity provider subscriber.
func (d *Dispatcher) Enqueue(change domain.IdentityChange) {
	idx := d.shardIndex(change.UserID)
	d.workers[idx] <- change
	metrics.IdentityQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a user ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.IdentityChange) {
	defer d.wg.Done()
	depth := metrics.IdentityQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			if err := d.handler.Apply(ctx, change); err != nil {
				d.log.Error().Err(err).
					Str("user_id", change.UserID).
					Int("worker_id", id).
					Msg("identity change failed")
			}
		}
	}
}
