package reader

import "time"

// Observer is notified about scheduling and fetch activity. Implementations
// must be safe for concurrent use.
type Observer interface {
	RequestSubmitted(priority Priority)
	FetchStarted(page *Page)
	// FetchFinished is called after every fetch attempt, once its outcome is
	// applied to the page. err is nil on success and wraps context.Canceled
	// when the loader was torn down mid-fetch.
	FetchFinished(page *Page, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) RequestSubmitted(Priority)                  {}
func (nopObserver) FetchStarted(*Page)                         {}
func (nopObserver) FetchFinished(*Page, error, time.Duration) {}
