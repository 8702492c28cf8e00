package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/tachireader/pkg/app/components"
	"github.com/kerbaras/tachireader/pkg/app/styles"
	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/reader"
)

// PreloadSetting is the part of the reader preferences the screen can change
// while reading.
type PreloadSetting interface {
	Preload() int
	SetPreload(n int) error
}

type ReaderOptions struct {
	Manga     *data.Manga
	StartPage int
	// Prefs enables the preload keys when set.
	Prefs PreloadSetting
	// OnClose receives the page the user was on when the screen quits.
	OnClose func(lastPage int)
}

type readerKeys struct {
	Next        key.Binding
	Prev        key.Binding
	Retry       key.Binding
	MorePreload key.Binding
	LessPreload key.Binding
	Quit        key.Binding
}

func (k readerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Retry, k.MorePreload, k.LessPreload, k.Quit}
}

func (k readerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultReaderKeys = readerKeys{
	Next:        key.NewBinding(key.WithKeys("right", "l", " "), key.WithHelp("→/l", "next")),
	Prev:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
	Retry:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	MorePreload: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "preload more")),
	LessPreload: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "preload less")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ReaderScreen follows the pages of one chapter as they load. Page state is
// pushed by the loader through cell subscriptions, so the view only
// re-renders when something changed.
type ReaderScreen struct {
	ctx    context.Context
	loader *reader.Loader
	opts   ReaderOptions

	pages   []*reader.Page
	current int
	loaded  bool
	err     error
	notice  string
	closed  bool

	updates       chan int
	unsubscribers []func()

	spinner spinner.Model
	help    help.Model
	keys    readerKeys

	width  int
	height int
}

func NewReaderScreen(ctx context.Context, loader *reader.Loader, opts ReaderOptions) *ReaderScreen {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.StatusLoading))
	return &ReaderScreen{
		ctx:     ctx,
		loader:  loader,
		opts:    opts,
		updates: make(chan int, 64),
		spinner: sp,
		help:    help.New(),
		keys:    defaultReaderKeys,
		width:   80,
	}
}

// Messages
type pagesLoadedMsg struct {
	pages []*reader.Page
	err   error
}

type pageUpdatedMsg struct {
	index int
}

func (s *ReaderScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.loadPages)
}

func (s *ReaderScreen) loadPages() tea.Msg {
	pages, err := s.loader.Pages(s.ctx)
	return pagesLoadedMsg{pages: pages, err: err}
}

// waitForUpdate blocks until any subscribed page changes.
func (s *ReaderScreen) waitForUpdate() tea.Msg {
	index, ok := <-s.updates
	if !ok {
		return nil
	}
	return pageUpdatedMsg{index: index}
}

func (s *ReaderScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.help.Width = msg.Width

	case tea.KeyMsg:
		return s.handleKey(msg)

	case pagesLoadedMsg:
		s.loaded = true
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		s.pages = msg.pages
		if len(s.pages) == 0 {
			return s, nil
		}
		s.current = max(0, min(s.opts.StartPage, len(s.pages)-1))
		s.subscribe()
		s.loader.LoadPage(s.pages[s.current])
		return s, s.waitForUpdate

	case pageUpdatedMsg:
		if s.closed {
			return s, nil
		}
		return s, s.waitForUpdate

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

func (s *ReaderScreen) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s.notice = ""

	switch {
	case key.Matches(msg, s.keys.Quit):
		s.Close()
		return s, tea.Quit

	case key.Matches(msg, s.keys.Next):
		s.goTo(s.current + 1)

	case key.Matches(msg, s.keys.Prev):
		s.goTo(s.current - 1)

	case key.Matches(msg, s.keys.Retry):
		if page := s.currentPage(); page != nil {
			if page.Status.Get() == reader.StatusError {
				s.loader.RetryPage(page)
				s.notice = fmt.Sprintf("retrying page %d", page.Index+1)
			}
		}

	case key.Matches(msg, s.keys.MorePreload):
		s.changePreload(1)

	case key.Matches(msg, s.keys.LessPreload):
		s.changePreload(-1)
	}
	return s, nil
}

func (s *ReaderScreen) goTo(index int) {
	if index < 0 || index >= len(s.pages) || index == s.current {
		return
	}
	s.current = index
	s.loader.LoadPage(s.pages[index])
}

func (s *ReaderScreen) changePreload(delta int) {
	if s.opts.Prefs == nil {
		return
	}
	n := max(0, s.opts.Prefs.Preload()+delta)
	if err := s.opts.Prefs.SetPreload(n); err != nil {
		s.notice = fmt.Sprintf("preload: %s", err)
		return
	}
	s.notice = fmt.Sprintf("preloading %d pages", n)
}

func (s *ReaderScreen) currentPage() *reader.Page {
	if s.current < 0 || s.current >= len(s.pages) {
		return nil
	}
	return s.pages[s.current]
}

// CurrentPage returns the index of the page on screen.
func (s *ReaderScreen) CurrentPage() int {
	return s.current
}

// subscribe fans the status, progress and error cells of every page into
// s.updates. A full channel already holds a pending refresh, so the send is
// dropped instead of blocking the cell writer.
func (s *ReaderScreen) subscribe() {
	for _, page := range s.pages {
		s.unsubscribers = append(s.unsubscribers,
			forward(page.Status, page.Index, s.updates),
			forward(page.Progress, page.Index, s.updates),
			forward(page.Error, page.Index, s.updates),
		)
	}
}

func forward[T any](cell *reader.Cell[T], index int, out chan<- int) func() {
	ch, cancel := cell.Subscribe()
	go func() {
		for range ch {
			select {
			case out <- index:
			default:
			}
		}
	}()
	return cancel
}

// Close stops the subscriptions, recycles the loader and reports the last
// page. It is safe to call more than once.
func (s *ReaderScreen) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, unsubscribe := range s.unsubscribers {
		unsubscribe()
	}
	s.unsubscribers = nil
	s.loader.Recycle()
	if s.opts.OnClose != nil && len(s.pages) > 0 {
		s.opts.OnClose(s.current)
	}
}

func (s *ReaderScreen) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(s.title()))
	b.WriteString("\n")

	switch {
	case s.err != nil:
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)))
		b.WriteString("\n")
	case !s.loaded:
		b.WriteString(s.spinner.View() + " resolving pages...")
		b.WriteString("\n")
	case len(s.pages) == 0:
		b.WriteString(styles.MutedStyle.Render("This chapter has no pages"))
		b.WriteString("\n")
	default:
		b.WriteString(components.PageStrip(s.pages, s.current, s.width-4))
		b.WriteString("\n\n")

		page := s.pages[s.current]
		header := fmt.Sprintf("Page %d/%d", s.current+1, len(s.pages))
		if page.Loading() {
			header = s.spinner.View() + " " + header
		}
		b.WriteString(styles.TextStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(components.PageDetails(page, min(40, max(10, s.width-12))))
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("%d requests pending", s.loader.Pending())))
		b.WriteString("\n")
	}

	if s.notice != "" {
		b.WriteString(styles.NoticeStyle.Render(s.notice))
		b.WriteString("\n")
	}
	b.WriteString(styles.HelpStyle.Render(s.help.View(s.keys)))
	return b.String()
}

func (s *ReaderScreen) title() string {
	chapter := s.loader.Chapter()
	if s.opts.Manga != nil && s.opts.Manga.Title != "" {
		return fmt.Sprintf("%s • %s", s.opts.Manga.Title, chapter)
	}
	return chapter.String()
}
