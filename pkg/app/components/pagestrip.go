package components

import (
	"strings"

	"github.com/kerbaras/tachireader/pkg/app/styles"
	"github.com/kerbaras/tachireader/pkg/reader"
)

// StatusGlyph is the single-cell symbol for a page in the strip.
func StatusGlyph(status reader.Status, loading bool) string {
	switch {
	case status == reader.StatusReady:
		return "■"
	case status == reader.StatusError:
		return "✗"
	case loading:
		return "▣"
	default:
		return "□"
	}
}

// PageStrip renders one glyph per page with the current page highlighted.
// When the chapter is wider than width the strip scrolls to keep the current
// page visible.
func PageStrip(pages []*reader.Page, current, width int) string {
	if len(pages) == 0 {
		return ""
	}
	from, to := stripWindow(len(pages), current, width)

	var b strings.Builder
	if from > 0 {
		b.WriteString(styles.MutedStyle.Render("‹"))
	}
	for i := from; i < to; i++ {
		page := pages[i]
		status, loading := page.Status.Get(), page.Loading()
		glyph := StatusGlyph(status, loading)
		if i == current {
			b.WriteString(styles.CurrentPageStyle.Render(glyph))
		} else {
			b.WriteString(styles.StatusStyle(status, loading).Render(glyph))
		}
	}
	if to < len(pages) {
		b.WriteString(styles.MutedStyle.Render("›"))
	}
	return b.String()
}

// stripWindow returns the half-open range of pages shown in a strip of width
// cells, reserving two cells for scroll markers when it does not fit.
func stripWindow(total, current, width int) (int, int) {
	if width <= 0 || total <= width {
		return 0, total
	}
	visible := max(1, width-2)
	from := current - visible/2
	from = max(0, min(from, total-visible))
	return from, from + visible
}
