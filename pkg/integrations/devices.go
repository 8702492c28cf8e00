package integrations

import (
	"sort"
	"strings"
)

// Device is an e-reader screen that exported pages can be fitted to.
type Device struct {
	Name      string
	Width     int
	Height    int
	DPI       int
	Grayscale bool
}

var Devices = map[string]Device{
	"kindle":             {Name: "Kindle Basic", Width: 758, Height: 1024, DPI: 167, Grayscale: true},
	"kindle-paperwhite":  {Name: "Kindle Paperwhite 1/2", Width: 758, Height: 1024, DPI: 212, Grayscale: true},
	"kindle-paperwhite3": {Name: "Kindle Paperwhite 3/4", Width: 1072, Height: 1448, DPI: 300, Grayscale: true},
	"kindle-paperwhite5": {Name: "Kindle Paperwhite 5", Width: 1236, Height: 1648, DPI: 300, Grayscale: true},
	"kindle-oasis":       {Name: "Kindle Oasis 3", Width: 1264, Height: 1680, DPI: 300, Grayscale: true},
	"kindle-scribe":      {Name: "Kindle Scribe", Width: 1860, Height: 2480, DPI: 300, Grayscale: true},
	"kobo-clara":         {Name: "Kobo Clara HD", Width: 1072, Height: 1448, DPI: 300, Grayscale: true},
	"kobo-libra":         {Name: "Kobo Libra 2", Width: 1264, Height: 1680, DPI: 300, Grayscale: true},
	"kobo-libra-colour":  {Name: "Kobo Libra Colour", Width: 1264, Height: 1680, DPI: 300},
	"kindle-fire-hd":     {Name: "Kindle Fire HD 7", Width: 800, Height: 1280, DPI: 216},
}

func GetDevice(id string) (Device, bool) {
	device, ok := Devices[strings.ToLower(id)]
	return device, ok
}

// DeviceIDs returns the known device ids in alphabetical order.
func DeviceIDs() []string {
	ids := make([]string, 0, len(Devices))
	for id := range Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Settings returns the image settings that fit pages to the device screen.
func (d Device) Settings() ImageSettings {
	settings := ImageSettings{
		MaxWidth:  d.Width,
		MaxHeight: d.Height,
		Quality:   85,
		Grayscale: d.Grayscale,
		Contrast:  1.0,
		Gamma:     1.0,
		Format:    "jpeg",
	}
	if d.DPI >= 300 {
		settings.Quality = 90
	}
	// e-ink panels render washed out without a little extra contrast
	if d.Grayscale {
		settings.Contrast = 1.1
		settings.Gamma = 0.9
	}
	return settings
}
