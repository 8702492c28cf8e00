package integrations

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	info, err := Probe(createTestImage(t, 12, 30))
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Width: 12, Height: 30, Format: "png"}, info)

	_, err = Probe([]byte("nope"))
	assert.Error(t, err)
}

func TestImageProcessor_Fit(t *testing.T) {
	tests := []struct {
		name          string
		settings      ImageSettings
		width, height int
		wantW, wantH  int
	}{
		{"fits already", ImageSettings{MaxWidth: 800, MaxHeight: 1200}, 600, 900, 600, 900},
		{"too wide", ImageSettings{MaxWidth: 800, MaxHeight: 1200}, 1600, 1200, 800, 600},
		{"too tall", ImageSettings{MaxWidth: 800, MaxHeight: 1200}, 600, 2400, 300, 1200},
		{"width only", ImageSettings{MaxWidth: 100}, 400, 4000, 100, 1000},
		{"unbounded", ImageSettings{}, 5000, 7000, 5000, 7000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewImageProcessor(tt.settings)
			w, h := p.fit(tt.width, tt.height)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestImageProcessor_Process(t *testing.T) {
	p := NewImageProcessor(ImageSettings{MaxWidth: 10, MaxHeight: 10, Grayscale: true, Format: "png"})

	out, err := p.Process(createTestImage(t, 40, 20))
	require.NoError(t, err)

	info, err := Probe(out)
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Width: 10, Height: 5, Format: "png"}, info)
}

func TestImageProcessor_DefaultsToJPEG(t *testing.T) {
	p := NewImageProcessor(ImageSettings{})

	out, err := p.Process(createTestImage(t, 3, 3))
	require.NoError(t, err)

	info, err := Probe(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
}

func TestImageProcessor_UnsupportedFormat(t *testing.T) {
	p := NewImageProcessor(ImageSettings{Format: "bmp"})
	_, err := p.Process(createTestImage(t, 2, 2))
	assert.Error(t, err)
}

func TestToGray(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{255, 255, 255, 255})
	src.Set(1, 0, color.RGBA{0, 0, 0, 255})

	gray, ok := toGray(src).(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(255), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(1, 0).Y)
}

func TestLevelTable(t *testing.T) {
	identity := levelTable(1, 1)
	for i := range identity {
		assert.Equal(t, uint8(i), identity[i])
	}

	contrast := levelTable(2, 1)
	assert.Equal(t, uint8(0), contrast[10])
	assert.Equal(t, uint8(128), contrast[128])
	assert.Equal(t, uint8(255), contrast[250])

	darker := levelTable(1, 0.5)
	assert.Less(t, darker[128], uint8(128))
	assert.Equal(t, uint8(255), darker[255])
}

func TestApplyLevels_Gray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(0, 0, color.Gray{Y: 100})
	src.SetGray(1, 0, color.Gray{Y: 200})

	var invert [256]uint8
	for i := range invert {
		invert[i] = uint8(255 - i)
	}

	out := applyLevels(src, &invert).(*image.Gray)
	assert.Equal(t, uint8(155), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(55), out.GrayAt(1, 0).Y)
}

func TestDevices(t *testing.T) {
	device, ok := GetDevice("Kindle-Paperwhite3")
	require.True(t, ok)
	assert.Equal(t, 1072, device.Width)

	settings := device.Settings()
	assert.Equal(t, 1072, settings.MaxWidth)
	assert.Equal(t, 1448, settings.MaxHeight)
	assert.Equal(t, 90, settings.Quality)
	assert.True(t, settings.Grayscale)
	assert.Equal(t, 1.1, settings.Contrast)

	fire, ok := GetDevice("kindle-fire-hd")
	require.True(t, ok)
	assert.False(t, fire.Settings().Grayscale)
	assert.Equal(t, 1.0, fire.Settings().Gamma)

	_, ok = GetDevice("nook")
	assert.False(t, ok)

	ids := DeviceIDs()
	assert.Len(t, ids, len(Devices))
	assert.IsIncreasing(t, ids)
}
