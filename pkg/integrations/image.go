package integrations

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageSettings controls how page images are transformed before export.
type ImageSettings struct {
	MaxWidth  int     // 0 means unbounded
	MaxHeight int     // 0 means unbounded
	Quality   int     // JPEG quality (1-100)
	Grayscale bool
	Contrast  float64 // 1.0 = no change
	Gamma     float64 // 1.0 = no change
	Format    string  // "jpeg" or "png"
}

// ImageInfo describes an encoded image without decoding its pixels.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// Probe reads the dimensions and format of an encoded page image.
func Probe(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to read image header: %w", err)
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// ImageProcessor fits page images to a screen.
type ImageProcessor struct {
	settings ImageSettings
	levels   *[256]uint8
}

func NewImageProcessor(settings ImageSettings) *ImageProcessor {
	if settings.Quality <= 0 || settings.Quality > 100 {
		settings.Quality = jpeg.DefaultQuality
	}
	if settings.Format == "" {
		settings.Format = "jpeg"
	}
	p := &ImageProcessor{settings: settings}
	if (settings.Contrast != 0 && settings.Contrast != 1) || (settings.Gamma != 0 && settings.Gamma != 1) {
		p.levels = levelTable(settings.Contrast, settings.Gamma)
	}
	return p
}

// Process decodes a page, scales it to fit, applies the tone settings and
// re-encodes it.
func (p *ImageProcessor) Process(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := p.fit(bounds.Dx(), bounds.Dy())
	if width != bounds.Dx() || height != bounds.Dy() {
		img = resize(img, width, height)
	}
	if p.settings.Grayscale {
		img = toGray(img)
	}
	if p.levels != nil {
		img = applyLevels(img, p.levels)
	}
	return p.encode(img)
}

// fit shrinks width and height to the configured bounds keeping the aspect
// ratio. Images are never enlarged.
func (p *ImageProcessor) fit(width, height int) (int, int) {
	scale := 1.0
	if p.settings.MaxWidth > 0 && width > p.settings.MaxWidth {
		scale = float64(p.settings.MaxWidth) / float64(width)
	}
	if p.settings.MaxHeight > 0 && height > p.settings.MaxHeight {
		scale = math.Min(scale, float64(p.settings.MaxHeight)/float64(height))
	}
	if scale == 1.0 {
		return width, height
	}
	return max(1, int(float64(width)*scale)), max(1, int(float64(height)*scale))
}

func resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func toGray(img image.Image) image.Image {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// levelTable maps every 8-bit channel value through contrast (around mid
// gray) and then gamma.
func levelTable(contrast, gamma float64) *[256]uint8 {
	if contrast == 0 {
		contrast = 1
	}
	if gamma == 0 {
		gamma = 1
	}
	var table [256]uint8
	for i := range table {
		v := (float64(i)-128)*contrast + 128
		v = math.Max(0, math.Min(255, v))
		v = 255 * math.Pow(v/255, 1/gamma)
		table[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return &table
}

func applyLevels(img image.Image, table *[256]uint8) image.Image {
	bounds := img.Bounds()
	if _, ok := img.(*image.Gray); ok {
		out := image.NewGray(bounds)
		draw.Draw(out, bounds, img, bounds.Min, draw.Src)
		for i, v := range out.Pix {
			out.Pix[i] = table[v]
		}
		return out
	}

	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			out.SetRGBA(x, y, color.RGBA{table[c.R], table[c.G], table[c.B], c.A})
		}
	}
	return out
}

func (p *ImageProcessor) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch p.settings.Format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.settings.Quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", p.settings.Format)
	}
	return buf.Bytes(), nil
}
