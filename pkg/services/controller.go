package services

import (
	"context"
	"fmt"

	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/reader"
	"github.com/kerbaras/tachireader/pkg/sources"
	"github.com/rs/zerolog"
)

// ProgressStore keeps the last page read per chapter.
type ProgressStore interface {
	GetProgress(mangaID, chapterIndex int) (*data.ReadingProgress, error)
	SaveProgress(p data.ReadingProgress) error
	ListProgress(mangaID int) (map[int]int, error)
}

type MangaController struct {
	source   sources.Source
	store    ProgressStore
	prefs    reader.Preferences
	log      zerolog.Logger
	observer reader.Observer
}

type ControllerOption func(*MangaController)

func WithLogger(log zerolog.Logger) ControllerOption {
	return func(c *MangaController) { c.log = log }
}

func WithObserver(o reader.Observer) ControllerOption {
	return func(c *MangaController) { c.observer = o }
}

func NewMangaController(source sources.Source, store ProgressStore, prefs reader.Preferences, opts ...ControllerOption) *MangaController {
	c := &MangaController{source: source, store: store, prefs: prefs, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session is a chapter opened for reading.
type Session struct {
	Manga     *data.Manga
	Chapter   data.Chapter
	Loader    *reader.Loader
	StartPage int
}

// Resolve fetches a manga and one of its chapters from the server.
func (c *MangaController) Resolve(ctx context.Context, mangaID, chapterIndex int) (*data.Manga, data.Chapter, error) {
	manga, err := c.source.GetManga(ctx, mangaID)
	if err != nil {
		return nil, data.Chapter{}, err
	}
	chapter, err := c.source.GetChapter(ctx, mangaID, chapterIndex)
	if err != nil {
		return nil, data.Chapter{}, err
	}
	return manga, *chapter, nil
}

// Open resolves a chapter and starts a page loader for it. Reading resumes
// from the locally saved page, then the server's, then the first page. The
// caller owns the loader and must recycle it.
func (c *MangaController) Open(ctx context.Context, mangaID, chapterIndex int) (*Session, error) {
	manga, chapter, err := c.Resolve(ctx, mangaID, chapterIndex)
	if err != nil {
		return nil, err
	}

	start := max(0, chapter.LastPageRead)
	saved, err := c.store.GetProgress(mangaID, chapterIndex)
	if err != nil {
		c.log.Warn().Err(err).Msg("could not read saved progress")
	} else if saved != nil {
		start = saved.LastPage
	}

	loader := reader.NewLoader(ctx, chapter, c.source, c.prefs,
		reader.WithLogger(c.log), reader.WithObserver(c.observer))
	return &Session{Manga: manga, Chapter: chapter, Loader: loader, StartPage: start}, nil
}

// SaveProgress records the page the user stopped on.
func (c *MangaController) SaveProgress(chapter data.Chapter, lastPage int) error {
	err := c.store.SaveProgress(data.ReadingProgress{
		MangaID:      chapter.MangaID,
		ChapterIndex: chapter.Index,
		LastPage:     lastPage,
	})
	if err != nil {
		return fmt.Errorf("save reading progress: %w", err)
	}
	return nil
}

// Chapters lists the chapters of a manga along with the local reading
// progress keyed by chapter index.
func (c *MangaController) Chapters(ctx context.Context, mangaID int) ([]*data.Chapter, map[int]int, error) {
	chapters, err := c.source.GetChapters(ctx, mangaID)
	if err != nil {
		return nil, nil, err
	}
	progress, err := c.store.ListProgress(mangaID)
	if err != nil {
		return nil, nil, err
	}
	return chapters, progress, nil
}
