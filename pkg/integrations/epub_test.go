package integrations

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kerbaras/tachireader/pkg/data"
)

func createTestImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 3), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func testManga() *data.Manga {
	return &data.Manga{ID: 7, Title: "Test Manga", Author: "Someone", Description: "A test manga"}
}

func TestEPubBuilderExport(t *testing.T) {
	outputDir := t.TempDir()
	builder := NewEPubBuilder(outputDir, nil)

	chapter := data.Chapter{MangaID: 7, Index: 1, Name: "First Chapter"}
	pages := [][]byte{createTestImage(t, 4, 6), createTestImage(t, 4, 6)}

	epubPath, err := builder.Export(testManga(), chapter, pages)
	if err != nil {
		t.Fatalf("Failed to create EPub: %v", err)
	}

	if filepath.Dir(epubPath) != outputDir {
		t.Errorf("Expected EPub in %s, got %s", outputDir, filepath.Dir(epubPath))
	}
	if filepath.Base(epubPath) != "Test Manga - First Chapter.epub" {
		t.Errorf("Unexpected filename '%s'", filepath.Base(epubPath))
	}

	r, err := zip.OpenReader(epubPath)
	if err != nil {
		t.Fatalf("EPub is not a valid archive: %v", err)
	}
	defer r.Close()

	images := 0
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, ".png") {
			images++
		}
	}
	if images != 2 {
		t.Errorf("Expected 2 images in the EPub, got %d", images)
	}
}

func TestEPubBuilderExportProcessesPages(t *testing.T) {
	processor := NewImageProcessor(ImageSettings{MaxWidth: 2, Format: "jpeg"})
	builder := NewEPubBuilder(t.TempDir(), processor)

	epubPath, err := builder.Export(testManga(), data.Chapter{ChapterNumber: 2}, [][]byte{createTestImage(t, 8, 8)})
	if err != nil {
		t.Fatalf("Failed to create EPub: %v", err)
	}

	r, err := zip.OpenReader(epubPath)
	if err != nil {
		t.Fatalf("EPub is not a valid archive: %v", err)
	}
	defer r.Close()

	found := false
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "001.jpg") {
			found = true
		}
	}
	if !found {
		t.Error("Expected the processed page to be stored as JPEG")
	}
}

func TestEPubBuilderNoPages(t *testing.T) {
	builder := NewEPubBuilder(t.TempDir(), nil)

	_, err := builder.Export(testManga(), data.Chapter{Name: "Empty"}, nil)
	if err != ErrNoPages {
		t.Errorf("Expected ErrNoPages, got %v", err)
	}
}

func TestEPubBuilderBadPage(t *testing.T) {
	builder := NewEPubBuilder(t.TempDir(), NewImageProcessor(ImageSettings{}))

	_, err := builder.Export(testManga(), data.Chapter{Name: "Broken"}, [][]byte{[]byte("not an image")})
	if err == nil {
		t.Error("Expected error for an undecodable page")
	}
}

func TestDirExporter(t *testing.T) {
	outputDir := t.TempDir()
	exporter := NewDirExporter(outputDir, nil)

	dir, err := exporter.Export(nil, data.Chapter{Name: "Chapter: 1?"}, [][]byte{createTestImage(t, 2, 2), createTestImage(t, 2, 2)})
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	if dir != filepath.Join(outputDir, "Chapter_ 1_") {
		t.Errorf("Unexpected chapter directory %s", dir)
	}

	for _, name := range []string{"001.png", "002.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Normal Name", "Normal Name"},
		{"Name/With/Slashes", "Name_With_Slashes"},
		{"Name:With:Colons", "Name_With_Colons"},
		{"Name*With?Special<Chars>", "Name_With_Special_Chars_"},
		{"  Spaces Around  ", "Spaces Around"},
		{"..Dots..", "Dots"},
	}

	for _, tt := range tests {
		result := sanitizeFilename(tt.input)
		if result != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestImageExtension(t *testing.T) {
	if ext := imageExtension(createTestImage(t, 1, 1)); ext != ".png" {
		t.Errorf("Expected .png, got %s", ext)
	}
	if ext := imageExtension([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}); ext != ".jpg" {
		t.Errorf("Expected .jpg, got %s", ext)
	}
	if ext := imageExtension([]byte("plain text")); ext != ".img" {
		t.Errorf("Expected .img, got %s", ext)
	}
}
