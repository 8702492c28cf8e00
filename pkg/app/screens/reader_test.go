package screens

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/reader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	count int
	err   error

	mu      sync.Mutex
	failing map[int]bool
}

func (f *fakeSource) PageCount(ctx context.Context, chapter data.Chapter) (int, error) {
	return f.count, f.err
}

func (f *fakeSource) FetchPage(ctx context.Context, chapter data.Chapter, index int, onProgress reader.ProgressFunc) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[index] {
		return nil, errors.New("server said no")
	}
	return []byte{byte(index)}, nil
}

func (f *fakeSource) setFailing(index int, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing == nil {
		f.failing = map[int]bool{}
	}
	f.failing[index] = failing
}

type fakePrefs struct {
	preload int
	err     error
}

func (p *fakePrefs) Threads() int { return 1 }
func (p *fakePrefs) Preload() int { return p.preload }
func (p *fakePrefs) SetPreload(n int) error {
	if p.err != nil {
		return p.err
	}
	p.preload = n
	return nil
}

func newTestScreen(t *testing.T, source *fakeSource, opts ReaderOptions) *ReaderScreen {
	t.Helper()
	prefs := opts.Prefs
	if prefs == nil {
		prefs = &fakePrefs{}
	}
	chapter := data.Chapter{MangaID: 1, Index: 2, Name: "Chapter 2"}
	loader := reader.NewLoader(context.Background(), chapter, source, prefs.(reader.Preferences))
	t.Cleanup(loader.Recycle)
	return NewReaderScreen(context.Background(), loader, opts)
}

func loadPages(t *testing.T, s *ReaderScreen) {
	t.Helper()
	_, cmd := s.Update(s.loadPages())
	require.NotNil(t, cmd)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func waitForPage(t *testing.T, page *reader.Page, status reader.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return page.Status.Get() == status
	}, time.Second, 5*time.Millisecond)
}

func TestReaderScreen_LoadsStartPage(t *testing.T) {
	s := newTestScreen(t, &fakeSource{count: 5}, ReaderOptions{StartPage: 3})
	loadPages(t, s)

	assert.Len(t, s.pages, 5)
	assert.Equal(t, 3, s.CurrentPage())
	waitForPage(t, s.pages[3], reader.StatusReady)
	assert.Contains(t, s.View(), "Page 4/5")
}

func TestReaderScreen_StartPageClamped(t *testing.T) {
	s := newTestScreen(t, &fakeSource{count: 2}, ReaderOptions{StartPage: 10})
	loadPages(t, s)
	assert.Equal(t, 1, s.CurrentPage())
}

func TestReaderScreen_Navigation(t *testing.T) {
	s := newTestScreen(t, &fakeSource{count: 3}, ReaderOptions{})
	loadPages(t, s)

	s.Update(keyMsg("left"))
	assert.Equal(t, 0, s.CurrentPage(), "cannot go before the first page")

	s.Update(keyMsg("right"))
	s.Update(keyMsg("l"))
	assert.Equal(t, 2, s.CurrentPage())

	s.Update(keyMsg("right"))
	assert.Equal(t, 2, s.CurrentPage(), "cannot go past the last page")

	s.Update(keyMsg("h"))
	assert.Equal(t, 1, s.CurrentPage())
	waitForPage(t, s.pages[1], reader.StatusReady)
}

func TestReaderScreen_Retry(t *testing.T) {
	source := &fakeSource{count: 1}
	source.setFailing(0, true)
	s := newTestScreen(t, source, ReaderOptions{})
	loadPages(t, s)

	waitForPage(t, s.pages[0], reader.StatusError)
	assert.Contains(t, s.View(), "server said no")

	source.setFailing(0, false)
	s.Update(keyMsg("r"))
	assert.Contains(t, s.notice, "retrying page 1")
	waitForPage(t, s.pages[0], reader.StatusReady)
}

func TestReaderScreen_Preload(t *testing.T) {
	prefs := &fakePrefs{preload: 1}
	s := newTestScreen(t, &fakeSource{count: 1}, ReaderOptions{Prefs: prefs})

	s.Update(keyMsg("+"))
	assert.Equal(t, 2, prefs.preload)

	s.Update(keyMsg("-"))
	s.Update(keyMsg("-"))
	s.Update(keyMsg("-"))
	assert.Equal(t, 0, prefs.preload)

	prefs.err = errors.New("disk full")
	s.Update(keyMsg("+"))
	assert.Equal(t, 0, prefs.preload)
	assert.Contains(t, s.notice, "disk full")
}

func TestReaderScreen_QuitReportsLastPage(t *testing.T) {
	var lastPage = -1
	s := newTestScreen(t, &fakeSource{count: 4}, ReaderOptions{
		StartPage: 2,
		OnClose:   func(page int) { lastPage = page },
	})
	loadPages(t, s)

	_, cmd := s.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 2, lastPage)

	_, err := s.loader.Pages(context.Background())
	assert.ErrorIs(t, err, reader.ErrRecycled)

	// Closing again is a no-op.
	lastPage = -1
	s.Close()
	assert.Equal(t, -1, lastPage)
}

func TestReaderScreen_PageCountError(t *testing.T) {
	s := newTestScreen(t, &fakeSource{err: errors.New("offline")}, ReaderOptions{})

	_, cmd := s.Update(s.loadPages())
	assert.Nil(t, cmd)
	assert.Contains(t, s.View(), "offline")
}

func TestReaderScreen_EmptyChapter(t *testing.T) {
	s := newTestScreen(t, &fakeSource{count: 0}, ReaderOptions{})

	_, cmd := s.Update(s.loadPages())
	assert.Nil(t, cmd)
	assert.Contains(t, s.View(), "no pages")
}

func TestReaderScreen_UpdatesFromCells(t *testing.T) {
	s := newTestScreen(t, &fakeSource{count: 2}, ReaderOptions{})
	loadPages(t, s)

	msg := s.waitForUpdate()
	update, ok := msg.(pageUpdatedMsg)
	require.True(t, ok)
	assert.GreaterOrEqual(t, update.index, 0)

	_, cmd := s.Update(update)
	assert.NotNil(t, cmd, "screen keeps listening for updates")
}

func TestReaderScreen_Title(t *testing.T) {
	s := newTestScreen(t, &fakeSource{count: 1}, ReaderOptions{Manga: &data.Manga{Title: "Yotsuba&!"}})
	assert.True(t, strings.HasPrefix(s.title(), "Yotsuba&!"))
	assert.Contains(t, s.View(), "resolving pages")
}
