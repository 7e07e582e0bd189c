package tracker

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/transitflow/transitflow/pkg/tdf"
)

// AvlDispatcher routes incoming reports onto a bounded set of workers. All
// reports for one vehicle hash to the same worker queue, so a vehicle's state
// transitions are strictly sequential while distinct vehicles process in
// parallel
type AvlDispatcher struct {
	queues  []chan *tdf.AvlReport
	process func(*tdf.AvlReport) error

	wg conc.WaitGroup

	// stopMutex orders submissions against Stop - a submitter holds the read
	// lock across its queue send, so Stop cannot close a queue underneath it
	stopMutex sync.RWMutex
	stopped   bool
}

func NewAvlDispatcher(config DispatcherConfig, process func(*tdf.AvlReport) error) *AvlDispatcher {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	queues := make([]chan *tdf.AvlReport, workers)
	for i := range queues {
		queues[i] = make(chan *tdf.AvlReport, config.QueueSize)
	}

	return &AvlDispatcher{
		queues:  queues,
		process: process,
	}
}

func (d *AvlDispatcher) Start() {
	for i := range d.queues {
		queue := d.queues[i]
		workerID := i

		d.wg.Go(func() {
			for report := range queue {
				// A failed report must not abort the vehicle's subsequent
				// reports or delay other vehicles on this worker
				if err := d.process(report); err != nil {
					log.Error().
						Err(err).
						Int("worker", workerID).
						Str("vehicle", report.VehicleIdentifier).
						Msg("Failed to process AVL report")
				}
			}
		})
	}
}

// Submit queues one report for processing, preserving submission order per
// vehicle
func (d *AvlDispatcher) Submit(report *tdf.AvlReport) error {
	if err := report.Validate(); err != nil {
		return err
	}

	d.stopMutex.RLock()
	defer d.stopMutex.RUnlock()

	if d.stopped {
		return errors.New("dispatcher is stopped")
	}

	d.queues[d.queueIndex(report.VehicleIdentifier)] <- report

	return nil
}

// SubmitBatch queues every report in the batch, continuing past individual
// failures. The returned error aggregates any per-report failures
func (d *AvlDispatcher) SubmitBatch(reports []*tdf.AvlReport) error {
	var errs []error

	for i, report := range reports {
		if err := d.Submit(report); err != nil {
			errs = append(errs, fmt.Errorf("report %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// Stop drains the queues & waits for in-flight processing to finish
func (d *AvlDispatcher) Stop() {
	d.stopMutex.Lock()
	if d.stopped {
		d.stopMutex.Unlock()
		return
	}
	d.stopped = true
	d.stopMutex.Unlock()

	for _, queue := range d.queues {
		close(queue)
	}

	d.wg.Wait()
}

func (d *AvlDispatcher) queueIndex(vehicleID string) int {
	hash := fnv.New32a()
	hash.Write([]byte(vehicleID))

	return int(hash.Sum32() % uint32(len(d.queues)))
}
