package data

import "fmt"

type Manga struct {
	ID           int
	Title        string
	Author       string
	Description  string
	ThumbnailURL string
	Source       string
	Status       string // "ONGOING", "COMPLETED", "UNKNOWN", ...
}

// Chapter identifies a chapter on the server. Index is the server-side
// chapter index used in page URLs, not the chapter number.
type Chapter struct {
	ID            int
	MangaID       int
	Index         int
	Name          string
	ChapterNumber float32
	Scanlator     string
	Read          bool
	LastPageRead  int
	PageCount     int // -1 when the server has not resolved the pages yet
}

func (c Chapter) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("Chapter %g", c.ChapterNumber)
}

// ReadingProgress is the last page the user was on in a chapter.
type ReadingProgress struct {
	MangaID      int
	ChapterIndex int
	LastPage     int
}
