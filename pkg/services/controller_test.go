package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	getProgressFunc  func(mangaID, chapterIndex int) (*data.ReadingProgress, error)
	listProgressFunc func(mangaID int) (map[int]int, error)
	saved            []data.ReadingProgress
	saveErr          error
}

func (m *mockStore) GetProgress(mangaID, chapterIndex int) (*data.ReadingProgress, error) {
	if m.getProgressFunc != nil {
		return m.getProgressFunc(mangaID, chapterIndex)
	}
	return nil, nil
}

func (m *mockStore) SaveProgress(p data.ReadingProgress) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, p)
	return nil
}

func (m *mockStore) ListProgress(mangaID int) (map[int]int, error) {
	if m.listProgressFunc != nil {
		return m.listProgressFunc(mangaID)
	}
	return map[int]int{}, nil
}

type staticPrefs struct{}

func (staticPrefs) Threads() int { return 1 }
func (staticPrefs) Preload() int { return 1 }

func TestOpenResumesFromServer(t *testing.T) {
	source := &mockSource{
		getChapterFunc: func(ctx context.Context, mangaID, index int) (*data.Chapter, error) {
			return &data.Chapter{MangaID: mangaID, Index: index, PageCount: 10, LastPageRead: 6}, nil
		},
	}
	c := NewMangaController(source, &mockStore{}, staticPrefs{})

	session, err := c.Open(context.Background(), 3, 5)
	require.NoError(t, err)
	defer session.Loader.Recycle()

	assert.Equal(t, 3, session.Manga.ID)
	assert.Equal(t, 5, session.Chapter.Index)
	assert.Equal(t, 6, session.StartPage)

	pages, err := session.Loader.Pages(context.Background())
	require.NoError(t, err)
	assert.Len(t, pages, 10)
}

func TestOpenPrefersLocalProgress(t *testing.T) {
	store := &mockStore{
		getProgressFunc: func(mangaID, chapterIndex int) (*data.ReadingProgress, error) {
			return &data.ReadingProgress{MangaID: mangaID, ChapterIndex: chapterIndex, LastPage: 8}, nil
		},
	}
	c := NewMangaController(&mockSource{}, store, staticPrefs{})

	session, err := c.Open(context.Background(), 1, 1)
	require.NoError(t, err)
	defer session.Loader.Recycle()
	assert.Equal(t, 8, session.StartPage)
}

func TestOpenIgnoresStoreErrors(t *testing.T) {
	store := &mockStore{
		getProgressFunc: func(int, int) (*data.ReadingProgress, error) {
			return nil, errors.New("locked")
		},
	}
	c := NewMangaController(&mockSource{}, store, staticPrefs{})

	session, err := c.Open(context.Background(), 1, 1)
	require.NoError(t, err)
	defer session.Loader.Recycle()
	assert.Zero(t, session.StartPage)
}

func TestOpenSourceErrors(t *testing.T) {
	source := &mockSource{
		getMangaFunc: func(ctx context.Context, id int) (*data.Manga, error) {
			return nil, errors.New("no such manga")
		},
	}
	c := NewMangaController(source, &mockStore{}, staticPrefs{})

	_, err := c.Open(context.Background(), 1, 1)
	assert.ErrorContains(t, err, "no such manga")

	source = &mockSource{
		getChapterFunc: func(ctx context.Context, mangaID, index int) (*data.Chapter, error) {
			return nil, errors.New("no such chapter")
		},
	}
	c = NewMangaController(source, &mockStore{}, staticPrefs{})
	_, err = c.Open(context.Background(), 1, 1)
	assert.ErrorContains(t, err, "no such chapter")
}

func TestSaveProgress(t *testing.T) {
	store := &mockStore{}
	c := NewMangaController(&mockSource{}, store, staticPrefs{})

	require.NoError(t, c.SaveProgress(data.Chapter{MangaID: 2, Index: 7}, 12))
	assert.Equal(t, []data.ReadingProgress{{MangaID: 2, ChapterIndex: 7, LastPage: 12}}, store.saved)

	store.saveErr = errors.New("read-only")
	assert.ErrorContains(t, c.SaveProgress(data.Chapter{}, 0), "read-only")
}

func TestChapters(t *testing.T) {
	source := &mockSource{
		getChaptersFunc: func(ctx context.Context, mangaID int) ([]*data.Chapter, error) {
			return []*data.Chapter{{MangaID: mangaID, Index: 1}, {MangaID: mangaID, Index: 2}}, nil
		},
	}
	store := &mockStore{
		listProgressFunc: func(mangaID int) (map[int]int, error) {
			return map[int]int{2: 4}, nil
		},
	}
	c := NewMangaController(source, store, staticPrefs{})

	chapters, progress, err := c.Chapters(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, chapters, 2)
	assert.Equal(t, map[int]int{2: 4}, progress)
}
