package data

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

const (
	DefaultThreads = 3
	DefaultPreload = 3

	keyThreads = "reader.threads"
	keyPreload = "reader.preload"
)

// ReaderPreferences are the reader settings kept in the database. Reads are
// served from memory so they can be polled on every page turn; writes go to
// the database first.
type ReaderPreferences struct {
	repo    *Repository
	threads atomic.Int32
	preload atomic.Int32
}

// ReaderPreferences loads the stored reader settings, falling back to the
// defaults for anything not set.
func (r *Repository) ReaderPreferences() (*ReaderPreferences, error) {
	p := &ReaderPreferences{repo: r}

	threads, err := r.intPreference(keyThreads, DefaultThreads)
	if err != nil {
		return nil, err
	}
	preload, err := r.intPreference(keyPreload, DefaultPreload)
	if err != nil {
		return nil, err
	}

	p.threads.Store(int32(threads))
	p.preload.Store(int32(preload))
	return p, nil
}

func (p *ReaderPreferences) Threads() int { return int(p.threads.Load()) }
func (p *ReaderPreferences) Preload() int { return int(p.preload.Load()) }

// SetThreads changes the worker count used by loaders created afterwards.
func (p *ReaderPreferences) SetThreads(n int) error {
	if n < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", n)
	}
	if err := p.repo.SetPreference(keyThreads, strconv.Itoa(n)); err != nil {
		return err
	}
	p.threads.Store(int32(n))
	return nil
}

// SetPreload changes how many pages are preloaded. Running loaders pick the
// new value up on their next page load.
func (p *ReaderPreferences) SetPreload(n int) error {
	if n < 0 {
		return fmt.Errorf("preload must not be negative, got %d", n)
	}
	if err := p.repo.SetPreference(keyPreload, strconv.Itoa(n)); err != nil {
		return err
	}
	p.preload.Store(int32(n))
	return nil
}

func (r *Repository) intPreference(key string, def int) (int, error) {
	raw, ok, err := r.GetPreference(key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("preference %q: %w", key, err)
	}
	return n, nil
}
