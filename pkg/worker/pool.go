package worker

import (
	"log"
	"sync"
	"time"

	"github.com/speclab/gospeccore/pkg/config"
	"github.com/speclab/gospeccore/pkg/models"
)

// Pool manages concurrent spectrum processing workers.
type Pool struct {
	jobs      chan models.WorkItem
	results   chan models.WorkResult
	saveQueue chan models.SaveItem
	workers   int
	shutdown  chan struct{}
	wg        sync.WaitGroup
	processor ProcessorFunc
	saver     SaverFunc
}

// ProcessorFunc defines the signature for spectrum processing.
type ProcessorFunc func(sample, water, dark models.SpectrumData, opts config.Options) (models.ProcessResult, error)

// SaverFunc persists a finished result; it runs on the async save lane, off
// the worker goroutines.
type SaverFunc func(item models.SaveItem)

// Options holds configuration for creating a new worker pool.
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Saver     SaverFunc
}

// New creates a worker pool and starts its workers.
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	// do not block queueing new jobs and results even if the workers are
	// already busy; the save lane gets extra room since persistence is the
	// slower operation
	pool := &Pool{
		jobs:      make(chan models.WorkItem, opts.Workers*2),
		results:   make(chan models.WorkResult, opts.Workers*2),
		saveQueue: make(chan models.SaveItem, opts.Workers*4),
		workers:   opts.Workers,
		shutdown:  make(chan struct{}),
		processor: opts.Processor,
		saver:     opts.Saver,
	}

	pool.start()
	return pool
}

func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.saveProcessor()

	log.Printf("worker pool started with %d workers", p.workers)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			res := p.processJob(job)
			// a full results buffer must not keep the worker from
			// seeing shutdown
			select {
			case p.results <- res:
			case <-p.shutdown:
				return
			}

		case <-p.shutdown:
			return
		}
	}
}

func (p *Pool) processJob(job models.WorkItem) models.WorkResult {
	start := time.Now()
	result, err := p.processor(job.Sample, job.Water, job.Dark, job.Options)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("job %d (%s): processing failed: %v", job.ID, job.Name, err)
	}

	return models.WorkResult{
		ID:             job.ID,
		RequestID:      job.RequestID,
		Name:           job.Name,
		Result:         result,
		Err:            err,
		Success:        err == nil,
		ProcessingTime: elapsed,
	}
}

// saveProcessor drains the save lane so persistence never blocks workers.
func (p *Pool) saveProcessor() {
	defer p.wg.Done()

	for {
		select {
		case item := <-p.saveQueue:
			if p.saver != nil {
				p.saver(item)
			}

		case <-p.shutdown:
			return
		}
	}
}

// SubmitJob submits a job to the worker pool, blocking only when the queue
// is full. Jobs still waiting for queue room when the pool shuts down are
// dropped.
func (p *Pool) SubmitJob(job models.WorkItem) {
	select {
	case p.jobs <- job:
	default:
		log.Printf("worker pool jobs channel full, job %d may be delayed", job.ID)
		select {
		case p.jobs <- job:
		case <-p.shutdown:
			log.Printf("worker pool shut down, dropping job %d", job.ID)
		}
	}
}

// GetResult retrieves a result from the worker pool without blocking.
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// WaitResult blocks until a result is available.
func (p *Pool) WaitResult() models.WorkResult {
	return <-p.results
}

// QueueSave queues a finished result for async persistence; full queues drop
// the item rather than stall processing.
func (p *Pool) QueueSave(item models.SaveItem) {
	select {
	case p.saveQueue <- item:
	default:
		log.Printf("save queue full, dropping history entry %q", item.Name)
	}
}

// Shutdown gracefully shuts down the worker pool, flushing any saves still
// queued on the async lane.
func (p *Pool) Shutdown() {
	log.Printf("shutting down worker pool...")
	close(p.shutdown)
	p.wg.Wait()
	for {
		select {
		case item := <-p.saveQueue:
			if p.saver != nil {
				p.saver(item)
			}
		default:
			log.Printf("worker pool shutdown complete")
			return
		}
	}
}
