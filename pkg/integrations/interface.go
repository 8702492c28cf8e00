package integrations

import "github.com/kerbaras/tachireader/pkg/data"

// Exporter writes the images of a fully loaded chapter somewhere and returns
// the path of the result.
type Exporter interface {
	Export(manga *data.Manga, chapter data.Chapter, pages [][]byte) (string, error)
}
