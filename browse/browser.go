package browse

import (
	"context"
	"slices"
	"sync"
)

// State is a snapshot of the directory picker.
type State struct {
	IsOpen      bool
	CurrentPath string
	Entries     []FileEntry
}

// Browser holds the directory picker state. It is safe for concurrent use.
type Browser struct {
	lister *Lister

	mu    sync.Mutex
	state State
}

// NewBrowser creates a closed browser.
func NewBrowser(lister *Lister) *Browser {
	return &Browser{lister: lister}
}

// Open shows the picker at path.
func (b *Browser) Open(ctx context.Context, path string) State {
	return b.load(ctx, path)
}

// Navigate moves an open picker to path.
func (b *Browser) Navigate(ctx context.Context, path string) State {
	return b.load(ctx, path)
}

// Close hides the picker and forgets its entries.
func (b *Browser) Close() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = State{}

	return b.snapshot()
}

// Select closes the picker and returns the chosen path.
func (b *Browser) Select(path string) string {
	b.Close()

	return path
}

// State returns a snapshot of the current state.
func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.snapshot()
}

func (b *Browser) load(ctx context.Context, path string) State {
	entries := b.lister.ListFiles(ctx, path)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = State{IsOpen: true, CurrentPath: path, Entries: entries}

	return b.snapshot()
}

func (b *Browser) snapshot() State {
	s := b.state
	s.Entries = slices.Clone(b.state.Entries)

	return s
}
