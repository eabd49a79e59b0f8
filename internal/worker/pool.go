// Package worker computes loudness envelopes from track previews in the
// background.
package worker

import (
	"context"
	"sync"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

// Job represents a background task for track processing.
type Job struct {
	TrackID    string
	PreviewURL string
}

// EnvelopeStore is where envelopes are kept.
type EnvelopeStore interface {
	GetEnvelope(ctx context.Context, trackID string) ([]domain.Beat, error)
	SaveEnvelope(ctx context.Context, trackID string, beats []domain.Beat) error
}

// Pool manages background workers for async jobs.
type Pool struct {
	repo   EnvelopeStore
	logger *log.Logger
	jobs   chan Job
	wg     sync.WaitGroup
}

// NewPool creates a worker pool with the given queue size.
func NewPool(repo EnvelopeStore, logger *log.Logger, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{repo: repo, logger: logger, jobs: make(chan Job, queueSize)}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop waits for workers to finish after closing the queue.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit queues a job without blocking.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	default:
		p.logger.Warnf("worker: dropping job for %s", job.TrackID)
	}
}

func (p *Pool) processJob(job Job) {
	if job.PreviewURL == "" {
		p.logger.Debugf("worker: no preview for %s, skipping", job.TrackID)
		return
	}
	ctx := context.Background()

	existing, err := p.repo.GetEnvelope(ctx, job.TrackID)
	if err != nil {
		p.logger.Warnf("worker: failed to read envelope of %s: %v", job.TrackID, err)
		return
	}
	if len(existing) > 0 {
		return
	}

	beats, err := AnalyzePreviewFunc(ctx, job.PreviewURL)
	if err != nil {
		p.logger.Warnf("worker: failed to analyze %s: %v", job.TrackID, err)
		return
	}
	if err := p.repo.SaveEnvelope(ctx, job.TrackID, domain.NormalizeBeats(beats)); err != nil {
		p.logger.Warnf("worker: failed to save envelope of %s: %v", job.TrackID, err)
		return
	}
	p.logger.Infof("worker: stored envelope of %s points=%d", job.TrackID, len(beats))
}
