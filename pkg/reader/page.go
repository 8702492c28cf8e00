package reader

import (
	"sync/atomic"

	"github.com/kerbaras/tachireader/pkg/data"
)

// Status is the lifecycle state of a page.
type Status int

const (
	StatusQueued Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Page is one image of a chapter together with its fetch state. Every mutable
// field is a Cell so the UI can observe it while workers write it.
type Page struct {
	Index   int
	Chapter data.Chapter

	Status   *Cell[Status]
	Image    *Cell[[]byte]
	Progress *Cell[float32]
	Error    *Cell[string]

	loading atomic.Bool
}

func newPage(chapter data.Chapter, index int) *Page {
	return &Page{
		Index:    index,
		Chapter:  chapter,
		Status:   NewCell(StatusQueued),
		Image:    NewCell[[]byte](nil),
		Progress: NewCell[float32](0),
		Error:    NewCell(""),
	}
}

// Loading reports whether a worker is currently fetching the page.
func (p *Page) Loading() bool {
	return p.loading.Load()
}

// claim marks the page as being fetched. Only one worker can hold the claim.
func (p *Page) claim() bool {
	return p.loading.CompareAndSwap(false, true)
}

func (p *Page) release() {
	p.loading.Store(false)
}

// requeue moves an errored page back to queued. It reports whether the page
// changed state.
func (p *Page) requeue() bool {
	return p.Status.Update(func(s Status) (Status, bool) {
		return StatusQueued, s == StatusError
	})
}

// setProgress records download progress for the current attempt. Progress is
// clamped to 1 and never moves backwards.
func (p *Page) setProgress(received, total int64) {
	if total <= 0 {
		return
	}
	v := float32(received) / float32(total)
	if v > 1 {
		v = 1
	}
	p.Progress.Update(func(cur float32) (float32, bool) {
		return v, v > cur
	})
}

func (p *Page) markReady(image []byte) {
	p.Image.Set(image)
	p.Error.Set("")
	p.Status.Set(StatusReady)
}

func (p *Page) markFailed(err error) {
	p.Image.Set(nil)
	p.Error.Set(err.Error())
	p.Status.Set(StatusError)
}
