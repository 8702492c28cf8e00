package integrations

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/tachireader/pkg/data"
)

var ErrNoPages = errors.New("no pages to export")

type EPubBuilder struct {
	outputDir string
	processor *ImageProcessor
}

// NewEPubBuilder writes books to outputDir. processor may be nil to embed
// pages as fetched.
func NewEPubBuilder(outputDir string, processor *ImageProcessor) *EPubBuilder {
	return &EPubBuilder{outputDir: outputDir, processor: processor}
}

// Export compiles the pages of one chapter into an EPub file named after the
// manga and chapter.
func (b *EPubBuilder) Export(manga *data.Manga, chapter data.Chapter, pages [][]byte) (string, error) {
	if len(pages) == 0 {
		return "", ErrNoPages
	}
	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// go-epub copies images from disk when the book is written
	stageDir, err := os.MkdirTemp("", "tachireader-epub-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stageDir)

	title := chapterTitle(manga, chapter)
	e, err := epub.NewEpub(title)
	if err != nil {
		return "", fmt.Errorf("failed to create EPub: %w", err)
	}
	if manga != nil {
		if manga.Author != "" {
			e.SetAuthor(manga.Author)
		}
		if manga.Description != "" {
			e.SetDescription(manga.Description)
		}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>%s</h1>\n", title)
	for i, page := range pages {
		if b.processor != nil {
			if page, err = b.processor.Process(page); err != nil {
				return "", fmt.Errorf("page %d: %w", i, err)
			}
		}

		name := fmt.Sprintf("%03d%s", i+1, imageExtension(page))
		path := filepath.Join(stageDir, name)
		if err := os.WriteFile(path, page, 0o644); err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}

		internalPath, err := e.AddImage(path, name)
		if err != nil {
			return "", fmt.Errorf("failed to add page %d: %w", i, err)
		}
		fmt.Fprintf(&body,
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>`+"\n",
			internalPath, i+1)
	}

	if _, err := e.AddSection(body.String(), title, "", ""); err != nil {
		return "", fmt.Errorf("failed to add section: %w", err)
	}

	outputPath := filepath.Join(b.outputDir, sanitizeFilename(title)+".epub")
	if err := e.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}
	return outputPath, nil
}

// DirExporter writes pages as numbered image files into a per-chapter
// directory.
type DirExporter struct {
	outputDir string
	processor *ImageProcessor
}

func NewDirExporter(outputDir string, processor *ImageProcessor) *DirExporter {
	return &DirExporter{outputDir: outputDir, processor: processor}
}

func (d *DirExporter) Export(manga *data.Manga, chapter data.Chapter, pages [][]byte) (string, error) {
	if len(pages) == 0 {
		return "", ErrNoPages
	}

	dir := filepath.Join(d.outputDir, sanitizeFilename(chapterTitle(manga, chapter)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create chapter directory: %w", err)
	}

	for i, page := range pages {
		if d.processor != nil {
			var err error
			if page, err = d.processor.Process(page); err != nil {
				return "", fmt.Errorf("page %d: %w", i, err)
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("%03d%s", i+1, imageExtension(page)))
		if err := os.WriteFile(path, page, 0o644); err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
	}
	return dir, nil
}

func chapterTitle(manga *data.Manga, chapter data.Chapter) string {
	if manga == nil || manga.Title == "" {
		return chapter.String()
	}
	return manga.Title + " - " + chapter.String()
}

// imageExtension sniffs the file extension for an encoded image.
func imageExtension(content []byte) string {
	switch http.DetectContentType(content) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}

// sanitizeFilename removes characters that are invalid in filenames
func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
