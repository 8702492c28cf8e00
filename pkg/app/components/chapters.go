package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/tachireader/pkg/data"
)

// ChapterRows builds one table row per chapter. progress maps chapter index
// to the last page read locally and wins over what the server reports.
func ChapterRows(chapters []*data.Chapter, progress map[int]int) []table.Row {
	rows := make([]table.Row, 0, len(chapters))
	for _, chapter := range chapters {
		pages := "?"
		if chapter.PageCount > 0 {
			pages = fmt.Sprintf("%d", chapter.PageCount)
		}

		lastPage := chapter.LastPageRead
		if p, ok := progress[chapter.Index]; ok {
			lastPage = p
		}
		read := ""
		switch {
		case chapter.Read:
			read = "✓"
		case lastPage > 0:
			read = fmt.Sprintf("p.%d", lastPage+1)
		}

		rows = append(rows, table.Row{
			fmt.Sprintf("%d", chapter.Index),
			truncateString(chapter.String(), 38),
			truncateString(chapter.Scanlator, 18),
			pages,
			read,
		})
	}
	return rows
}

// NewChapterTable renders chapters as a non-interactive table.
func NewChapterTable(chapters []*data.Chapter, progress map[int]int) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 5},
		{Title: "Chapter", Width: 40},
		{Title: "Scanlator", Width: 20},
		{Title: "Pages", Width: 6},
		{Title: "Read", Width: 6},
	}
	rows := ChapterRows(chapters, progress)

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for the header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
