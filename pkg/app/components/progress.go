package components

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kerbaras/tachireader/pkg/app/styles"
	"github.com/kerbaras/tachireader/pkg/integrations"
	"github.com/kerbaras/tachireader/pkg/reader"
)

// PageDetails renders the state of a single page: its status, a download
// bar while it is loading, the error when it failed and the image size once
// it is ready.
func PageDetails(page *reader.Page, width int) string {
	if page == nil {
		return ""
	}

	status := page.Status.Get()
	loading := page.Loading()
	style := styles.StatusStyle(status, loading)

	var b strings.Builder
	label := strings.ToUpper(status.String())
	if status == reader.StatusQueued && loading {
		label = "LOADING"
	}
	b.WriteString(style.Render(label))
	b.WriteString("\n")

	switch status {
	case reader.StatusQueued:
		if loading {
			progress := page.Progress.Get()
			b.WriteString(renderProgressBar(progress, width))
			b.WriteString(fmt.Sprintf(" %3.0f%%", progress*100))
			b.WriteString("\n")
		}
	case reader.StatusError:
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", page.Error.Get())))
		b.WriteString("\n")
	case reader.StatusReady:
		image := page.Image.Get()
		info := humanize.Bytes(uint64(len(image)))
		if probe, err := integrations.Probe(image); err == nil {
			info = fmt.Sprintf("%s • %dx%d %s", info, probe.Width, probe.Height, probe.Format)
		}
		b.WriteString(styles.MutedStyle.Render(info))
		b.WriteString("\n")
	}

	return b.String()
}

func renderProgressBar(fraction float32, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = max(0, min(fraction, 1))

	filled := int(fraction * float32(width))
	bar := styles.ProgressBarStyle.Render(strings.Repeat("█", filled))
	empty := styles.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
	return bar + empty
}

// DownloadLine renders one line of chapter download progress, counting
// settled pages against the total.
func DownloadLine(label string, ready, failed, total, width int) string {
	var fraction float32
	if total > 0 {
		fraction = float32(ready+failed) / float32(total)
	}
	line := fmt.Sprintf("%s %s %d/%d", label, renderProgressBar(fraction, width), ready, total)
	if failed > 0 {
		line += " " + styles.StatusError.Render(fmt.Sprintf("(%d failed)", failed))
	}
	return line
}
