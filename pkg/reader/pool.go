package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pool runs a fixed number of workers that drain a PriorityQueue and fetch
// pages from a PageSource.
type Pool struct {
	queue    *PriorityQueue
	source   PageSource
	workers  int
	log      zerolog.Logger
	observer Observer

	mu      sync.Mutex
	group   *errgroup.Group
	started bool
}

// NewPool creates a pool with the given number of workers (at least one).
func NewPool(queue *PriorityQueue, source PageSource, workers int, log zerolog.Logger, observer Observer) *Pool {
	if workers < 1 {
		workers = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Pool{
		queue:    queue,
		source:   source,
		workers:  workers,
		log:      log,
		observer: observer,
	}
}

// Start launches the workers. They run until ctx is cancelled or the queue is
// closed. Calling Start more than once has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.group = new(errgroup.Group)

	p.log.Debug().Int("workers", p.workers).Msg("starting page workers")
	for i := 0; i < p.workers; i++ {
		id := i
		p.group.Go(func() error {
			p.work(ctx, id)
			return nil
		})
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.mu.Lock()
	g := p.group
	p.mu.Unlock()
	if g != nil {
		_ = g.Wait()
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.workers
}

func (p *Pool) work(ctx context.Context, id int) {
	log := p.log.With().Int("worker", id).Logger()
	for {
		req, err := p.queue.Take(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("worker stopped")
			return
		}
		p.process(ctx, log, req)
		if ctx.Err() != nil {
			log.Debug().Msg("worker cancelled")
			return
		}
	}
}

// process services a single request. Failures are recorded on the page and
// never escape; cancellation leaves the page untouched.
//
// The claim is released before the outcome is published. Anyone who sees
// READY or ERROR may requeue the page at once, and the request they submit
// must find the page claimable.
func (p *Pool) process(ctx context.Context, log zerolog.Logger, req Request) {
	page := req.Page
	if !page.claim() {
		log.Debug().Int("page", page.Index).Msg("page already loading")
		return
	}

	if status := page.Status.Get(); status != StatusQueued {
		page.release()
		log.Debug().Int("page", page.Index).Stringer("status", status).Msg("skipping page")
		return
	}

	log.Debug().Int("page", page.Index).Stringer("priority", req.Priority).Msg("loading page")
	page.Progress.Set(0)
	p.observer.FetchStarted(page)

	start := time.Now()
	image, err := p.fetch(ctx, page)
	elapsed := time.Since(start)
	page.release()

	switch {
	case err == nil:
		page.markReady(image)
		log.Debug().Int("page", page.Index).Int("bytes", len(image)).Msg("page ready")
	case isCancellation(ctx, err):
		if !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", context.Canceled, err)
		}
		log.Debug().Int("page", page.Index).Msg("page fetch cancelled")
	default:
		page.markFailed(err)
		log.Warn().Err(err).Int("page", page.Index).Msg("page fetch failed")
	}
	p.observer.FetchFinished(page, err, elapsed)
}

func (p *Pool) fetch(ctx context.Context, page *Page) (image []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: fetch panicked: %v", page.Index, r)
		}
	}()
	return p.source.FetchPage(ctx, page.Chapter, page.Index, page.setProgress)
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
