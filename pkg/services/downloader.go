package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/integrations"
	"github.com/kerbaras/tachireader/pkg/reader"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyChapter    = errors.New("chapter has no pages")
	ErrIncompleteFetch = errors.New("some pages could not be loaded")
)

// DownloadProgress represents the progress of a chapter download
type DownloadProgress struct {
	MangaID      int
	ChapterIndex int
	Ready        int
	Failed       int
	TotalPages   int
	Attempt      int
	Status       string // "resolving", "downloading", "exporting", "complete", "error"
	Error        error
}

// Downloader fetches every page of a chapter through a page loader and hands
// the images to an exporter.
type Downloader struct {
	source   reader.PageSource
	threads  int
	exporter integrations.Exporter
	retries  int
	log      zerolog.Logger
	observer reader.Observer

	progressChan chan DownloadProgress
}

type DownloaderOption func(*Downloader)

// WithRetries retries failed pages up to n more times.
func WithRetries(n int) DownloaderOption {
	return func(d *Downloader) { d.retries = max(0, n) }
}

func WithDownloadLogger(log zerolog.Logger) DownloaderOption {
	return func(d *Downloader) { d.log = log }
}

func WithDownloadObserver(o reader.Observer) DownloaderOption {
	return func(d *Downloader) { d.observer = o }
}

func NewDownloader(source reader.PageSource, threads int, exporter integrations.Exporter, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		source:       source,
		threads:      threads,
		exporter:     exporter,
		log:          zerolog.Nop(),
		progressChan: make(chan DownloadProgress, 100),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Progress returns the channel receiving download progress updates. Updates
// are dropped when nobody keeps up with them.
func (d *Downloader) Progress() <-chan DownloadProgress {
	return d.progressChan
}

// downloadPrefs turns preloading off: every page is requested explicitly.
type downloadPrefs struct{ threads int }

func (p downloadPrefs) Threads() int { return p.threads }
func (p downloadPrefs) Preload() int { return 0 }

// DownloadChapter loads all pages of chapter and exports them, returning the
// exporter's output path.
func (d *Downloader) DownloadChapter(ctx context.Context, manga *data.Manga, chapter data.Chapter) (string, error) {
	progress := DownloadProgress{MangaID: chapter.MangaID, ChapterIndex: chapter.Index, Status: "resolving"}
	d.sendProgress(progress)

	path, err := d.download(ctx, manga, chapter, &progress)
	if err != nil {
		progress.Status = "error"
		progress.Error = err
		d.sendProgress(progress)
		return "", err
	}

	progress.Status = "complete"
	d.sendProgress(progress)
	return path, nil
}

func (d *Downloader) download(ctx context.Context, manga *data.Manga, chapter data.Chapter, progress *DownloadProgress) (string, error) {
	loader := reader.NewLoader(ctx, chapter, d.source, downloadPrefs{threads: d.threads},
		reader.WithLogger(d.log), reader.WithObserver(d.observer))
	defer loader.Recycle()

	pages, err := loader.Pages(ctx)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", ErrEmptyChapter
	}
	progress.TotalPages = len(pages)
	progress.Status = "downloading"

	for attempt := 0; attempt <= d.retries; attempt++ {
		pending := unfinished(pages)
		if len(pending) == 0 {
			break
		}
		progress.Attempt = attempt
		if attempt > 0 {
			d.log.Info().Int("attempt", attempt).Int("pages", len(pending)).Msg("retrying failed pages")
		}

		for _, page := range pending {
			if attempt == 0 {
				loader.LoadPage(page)
			} else {
				loader.RetryPage(page)
			}
		}
		for _, page := range pending {
			if _, err := waitSettled(ctx, page); err != nil {
				return "", err
			}
			progress.Ready, progress.Failed = count(pages)
			d.sendProgress(*progress)
		}
	}

	if failed := unfinished(pages); len(failed) > 0 {
		first := failed[0]
		return "", fmt.Errorf("%w: %d of %d failed, page %d: %s",
			ErrIncompleteFetch, len(failed), len(pages), first.Index+1, first.Error.Get())
	}

	images := make([][]byte, len(pages))
	for i, page := range pages {
		images[i] = page.Image.Get()
	}

	progress.Status = "exporting"
	d.sendProgress(*progress)
	return d.exporter.Export(manga, chapter, images)
}

// waitSettled blocks until page leaves the QUEUED state.
func waitSettled(ctx context.Context, page *reader.Page) (reader.Status, error) {
	updates, cancel := page.Status.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return reader.StatusQueued, ctx.Err()
		case status := <-updates:
			if status != reader.StatusQueued {
				return status, nil
			}
		}
	}
}

func unfinished(pages []*reader.Page) []*reader.Page {
	var out []*reader.Page
	for _, page := range pages {
		if page.Status.Get() != reader.StatusReady {
			out = append(out, page)
		}
	}
	return out
}

func count(pages []*reader.Page) (ready, failed int) {
	for _, page := range pages {
		switch page.Status.Get() {
		case reader.StatusReady:
			ready++
		case reader.StatusError:
			failed++
		}
	}
	return ready, failed
}

// sendProgress sends a progress update (non-blocking)
func (d *Downloader) sendProgress(progress DownloadProgress) {
	select {
	case d.progressChan <- progress:
	default:
	}
}
