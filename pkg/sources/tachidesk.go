package sources

import (
	"context"
	"fmt"

	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/utils"
)

type Manga struct {
	ID           int    `json:"id"`
	SourceID     string `json:"sourceId"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Author       string `json:"author"`
	Description  string `json:"description"`
	Status       string `json:"status"`
}

func (m *Manga) ToManga() *data.Manga {
	return &data.Manga{
		ID:           m.ID,
		Title:        m.Title,
		Author:       m.Author,
		Description:  m.Description,
		ThumbnailURL: m.ThumbnailURL,
		Source:       m.SourceID,
		Status:       m.Status,
	}
}

type Chapter struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	ChapterNumber float32 `json:"chapterNumber"`
	Scanlator     string  `json:"scanlator"`
	MangaID       int     `json:"mangaId"`
	Read          bool    `json:"read"`
	LastPageRead  int     `json:"lastPageRead"`
	Index         int     `json:"index"`
	PageCount     int     `json:"pageCount"`
}

func (c *Chapter) ToChapter() *data.Chapter {
	return &data.Chapter{
		ID:            c.ID,
		MangaID:       c.MangaID,
		Index:         c.Index,
		Name:          c.Name,
		ChapterNumber: c.ChapterNumber,
		Scanlator:     c.Scanlator,
		Read:          c.Read,
		LastPageRead:  c.LastPageRead,
		PageCount:     c.PageCount,
	}
}

// Tachidesk talks to the REST API of a Tachidesk/Suwayomi server.
type Tachidesk struct {
	api *utils.API
}

func NewTachidesk(baseURL string, opts ...utils.APIOption) *Tachidesk {
	return &Tachidesk{api: utils.NewAPI(baseURL, opts...)}
}

func (t *Tachidesk) GetManga(ctx context.Context, id int) (*data.Manga, error) {
	var manga Manga
	if err := t.api.Get(ctx, fmt.Sprintf("/api/v1/manga/%d", id), nil, &manga); err != nil {
		return nil, fmt.Errorf("get manga %d: %w", id, err)
	}
	return manga.ToManga(), nil
}

func (t *Tachidesk) GetChapters(ctx context.Context, mangaID int) ([]*data.Chapter, error) {
	var chapters []Chapter
	if err := t.api.Get(ctx, fmt.Sprintf("/api/v1/manga/%d/chapters", mangaID), nil, &chapters); err != nil {
		return nil, fmt.Errorf("get chapters of manga %d: %w", mangaID, err)
	}
	out := make([]*data.Chapter, len(chapters))
	for i := range chapters {
		out[i] = chapters[i].ToChapter()
	}
	return out, nil
}

// GetChapter fetches a single chapter. The server resolves the page list on
// this call, so PageCount is filled in.
func (t *Tachidesk) GetChapter(ctx context.Context, mangaID, index int) (*data.Chapter, error) {
	var chapter Chapter
	if err := t.api.Get(ctx, fmt.Sprintf("/api/v1/manga/%d/chapter/%d", mangaID, index), nil, &chapter); err != nil {
		return nil, fmt.Errorf("get chapter %d of manga %d: %w", index, mangaID, err)
	}
	return chapter.ToChapter(), nil
}

// PageCount returns the number of pages in chapter, or 0 when the server does
// not know it.
func (t *Tachidesk) PageCount(ctx context.Context, chapter data.Chapter) (int, error) {
	resolved, err := t.GetChapter(ctx, chapter.MangaID, chapter.Index)
	if err != nil {
		return 0, err
	}
	if resolved.PageCount < 0 {
		return 0, nil
	}
	return resolved.PageCount, nil
}

// FetchPage downloads one page image.
func (t *Tachidesk) FetchPage(ctx context.Context, chapter data.Chapter, index int, onProgress func(received, total int64)) ([]byte, error) {
	path := fmt.Sprintf("/api/v1/manga/%d/chapter/%d/page/%d", chapter.MangaID, chapter.Index, index)
	content, _, err := t.api.Download(ctx, path, onProgress)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", index, err)
	}
	return content, nil
}
