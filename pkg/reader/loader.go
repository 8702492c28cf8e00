// Package reader loads the pages of a chapter for display. A Loader owns the
// page list of one chapter, a priority queue of fetch requests and a pool of
// workers that drain it. Pages the user navigates to jump ahead of look-ahead
// preloading, and retries of failed pages jump ahead of both.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/rs/zerolog"
)

// ErrRecycled is returned by Pages after Recycle.
var ErrRecycled = errors.New("reader: loader recycled")

// ProgressFunc receives the number of bytes received so far and the expected
// total, which is zero or negative when unknown.
type ProgressFunc = func(received, total int64)

// PageSource resolves chapters into page images.
type PageSource interface {
	PageCount(ctx context.Context, chapter data.Chapter) (int, error)
	FetchPage(ctx context.Context, chapter data.Chapter, index int, onProgress ProgressFunc) ([]byte, error)
}

// Preferences supplies reader settings. Threads is read once when a loader is
// created; Preload is read on every LoadPage.
type Preferences interface {
	Threads() int
	Preload() int
}

type Option func(*Loader)

func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

func WithObserver(o Observer) Option {
	return func(l *Loader) {
		if o != nil {
			l.observer = o
		}
	}
}

// Loader schedules page fetches for a single chapter.
type Loader struct {
	chapter  data.Chapter
	source   PageSource
	prefs    Preferences
	log      zerolog.Logger
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc
	queue  *PriorityQueue
	pool   *Pool

	pagesMu      sync.Mutex
	pages        *Cell[[]*Page]
	materialized bool

	recycleOnce sync.Once
	recycled    atomic.Bool
}

// NewLoader creates a loader for chapter and starts its workers. The workers
// stop when ctx is cancelled or Recycle is called.
func NewLoader(ctx context.Context, chapter data.Chapter, source PageSource, prefs Preferences, opts ...Option) *Loader {
	l := &Loader{
		chapter:  chapter,
		source:   source,
		prefs:    prefs,
		log:      zerolog.Nop(),
		observer: nopObserver{},
		pages:    NewCell[[]*Page](nil),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With().
		Str("session", uuid.NewString()).
		Int("manga", chapter.MangaID).
		Int("chapter", chapter.Index).
		Logger()

	l.ctx, l.cancel = context.WithCancel(ctx)
	l.queue = NewPriorityQueue()
	l.pool = NewPool(l.queue, source, prefs.Threads(), l.log, l.observer)
	l.pool.Start(l.ctx)

	l.log.Info().Int("threads", l.pool.Size()).Msg("page loader started")
	return l
}

// Chapter returns the chapter this loader serves.
func (l *Loader) Chapter() data.Chapter {
	return l.chapter
}

// Pages returns the chapter's pages, resolving the page count on the first
// successful call. The same slice is returned afterwards and never resized.
// An unknown page count yields an empty list.
func (l *Loader) Pages(ctx context.Context) ([]*Page, error) {
	l.pagesMu.Lock()
	defer l.pagesMu.Unlock()

	if l.recycled.Load() {
		return nil, ErrRecycled
	}
	if l.materialized {
		return l.pages.Get(), nil
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	unlink := context.AfterFunc(l.ctx, stop)
	defer unlink()

	count, err := l.source.PageCount(ctx, l.chapter)
	if err != nil {
		return nil, fmt.Errorf("resolve page count: %w", err)
	}
	if count < 0 {
		count = 0
	}

	pages := make([]*Page, count)
	for i := range pages {
		pages[i] = newPage(l.chapter, i)
	}
	l.materialized = true
	l.pages.Set(pages)

	l.log.Debug().Int("pages", count).Msg("page list ready")
	return pages, nil
}

// PageList is the observable page list. It holds nil until Pages succeeds and
// again after Recycle.
func (l *Loader) PageList() *Cell[[]*Page] {
	return l.pages
}

// LoadPage queues page for loading and preloads the pages after it. A page
// that previously failed is retried.
func (l *Loader) LoadPage(page *Page) {
	if page == nil {
		return
	}
	if page.requeue() {
		l.log.Debug().Int("page", page.Index).Msg("requeued failed page")
	}
	if page.Status.Get() == StatusQueued {
		l.submit(page, PriorityExplicit)
	}
	l.preload(page, l.prefs.Preload())
}

// RetryPage requeues a failed page ahead of every other request.
func (l *Loader) RetryPage(page *Page) {
	if page == nil {
		return
	}
	page.requeue()
	l.submit(page, PriorityRetry)
}

// Pending returns the number of requests waiting for a worker.
func (l *Loader) Pending() int {
	return l.queue.Len()
}

// Recycle stops the workers, drops pending requests and releases the page
// list. Pages being fetched keep whatever state they had. Safe to call more
// than once.
func (l *Loader) Recycle() {
	l.recycleOnce.Do(func() {
		l.recycled.Store(true)
		l.cancel()
		l.queue.Close()
		l.pool.Wait()

		l.pagesMu.Lock()
		l.pages.Set(nil)
		l.pagesMu.Unlock()

		l.log.Info().Msg("page loader recycled")
	})
}

// preload submits up to amount pages following page that are still queued
// and not being fetched, in index order.
func (l *Loader) preload(page *Page, amount int) int {
	pages := l.pages.Get()
	if amount <= 0 || page.Index < 0 || page.Index >= len(pages)-1 {
		return 0
	}

	end := min(page.Index+1+amount, len(pages))
	submitted := 0
	for _, next := range pages[page.Index+1 : end] {
		if next.Status.Get() != StatusQueued || next.Loading() {
			continue
		}
		if l.submit(next, PriorityPreload) {
			submitted++
		}
	}
	return submitted
}

func (l *Loader) submit(page *Page, priority Priority) bool {
	req, err := l.queue.Submit(page, priority)
	if err != nil {
		l.log.Debug().Err(err).Int("page", page.Index).Msg("dropping page request")
		return false
	}
	l.observer.RequestSubmitted(priority)
	l.log.Debug().
		Int("page", page.Index).
		Stringer("priority", priority).
		Uint64("seq", req.Sequence).
		Msg("page queued")
	return true
}
