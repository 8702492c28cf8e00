package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/tachireader/pkg/app/screens"
	"github.com/kerbaras/tachireader/pkg/reader"
)

type App struct {
	screen *screens.ReaderScreen
}

// NewApp builds the reader TUI for a running loader.
func NewApp(ctx context.Context, loader *reader.Loader, opts screens.ReaderOptions) *App {
	return &App{screen: screens.NewReaderScreen(ctx, loader, opts)}
}

// Run blocks until the user quits or ctx is cancelled. The loader is
// recycled either way.
func (a *App) Run(ctx context.Context) error {
	defer a.screen.Close()

	p := tea.NewProgram(a.screen, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
