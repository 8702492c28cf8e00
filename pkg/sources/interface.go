package sources

import (
	"context"

	"github.com/kerbaras/tachireader/pkg/data"
)

// Source is a manga server the reader can browse and read from.
type Source interface {
	GetManga(ctx context.Context, id int) (*data.Manga, error)
	GetChapters(ctx context.Context, mangaID int) ([]*data.Chapter, error)
	GetChapter(ctx context.Context, mangaID, index int) (*data.Chapter, error)

	PageCount(ctx context.Context, chapter data.Chapter) (int, error)
	FetchPage(ctx context.Context, chapter data.Chapter, index int, onProgress func(received, total int64)) ([]byte, error)
}
