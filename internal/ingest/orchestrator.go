package ingest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/filing"
)

// Orchestrator runs uploaded-filing jobs on a bounded worker pool.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	indexer *Indexer
	log     *zap.Logger
	workers int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OrchestratorConfig tunes the pool.
type OrchestratorConfig struct {
	Workers   int
	QueueSize int
	JobTTL    time.Duration
}

// NewOrchestrator creates the pipeline; Start launches it.
func NewOrchestrator(indexer *Indexer, cfg OrchestratorConfig, log *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.QueueSize),
		indexer: indexer,
		log:     log,
		workers: cfg.Workers,
	}
}

// Start launches worker goroutines and the job-store janitor.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit registers an upload and queues it, returning the job id.
func (o *Orchestrator) Submit(filename string, meta filing.Metadata, data []byte) (string, error) {
	job := NewJob(uuid.NewString(), filename, meta, data)
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return job.ID, nil
	default:
		job.Fail("job queue is full")
		return "", fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by id, or nil.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns the current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.log.With(zap.String("job_id", job.ID), zap.String("doc_id", job.meta.DocID))

	res, err := o.indexer.IndexDocument(ctx, bytes.NewReader(job.fileData), job.Filename, job.meta, job.SetPhase)
	if err != nil {
		log.Error("ingestion failed", zap.Error(err))
		job.Fail(err.Error())
		return
	}
	log.Info("ingestion complete", zap.Int("chunks", res.Chunks))
	job.Complete(res.Chunks)
}
