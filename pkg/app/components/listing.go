package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/integrations"
	"github.com/kerbaras/tachireader/pkg/reader"
)

var (
	purple = lipgloss.Color("99")

	headerStyle = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Listing renders a borderless table for plain command output.
func Listing(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...)

	for _, row := range rows {
		t.Row(row...)
	}
	return t.String()
}

// DeviceListing lists the export devices by id.
func DeviceListing() string {
	rows := make([][]string, 0, len(integrations.Devices))
	for _, id := range integrations.DeviceIDs() {
		device := integrations.Devices[id]
		screen := "color"
		if device.Grayscale {
			screen = "e-ink"
		}
		rows = append(rows, []string{
			id,
			device.Name,
			fmt.Sprintf("%dx%d", device.Width, device.Height),
			fmt.Sprintf("%d", device.DPI),
			screen,
		})
	}
	return Listing([]string{"ID", "Device", "Resolution", "DPI", "Screen"}, rows)
}

// PreferenceListing shows the current reader settings.
func PreferenceListing(prefs reader.Preferences) string {
	return Listing([]string{"Setting", "Value", "Default"}, [][]string{
		{"threads", fmt.Sprintf("%d", prefs.Threads()), fmt.Sprintf("%d", data.DefaultThreads)},
		{"preload", fmt.Sprintf("%d", prefs.Preload()), fmt.Sprintf("%d", data.DefaultPreload)},
	})
}
