// Package gallery holds the paginated wallpaper collection and the category or
// search filter it was loaded under.
//
// A State loads pages through a Fetcher using an offset cursor. At most one
// page request is outstanding per filter; changing the filter abandons the
// in-flight request and its response is discarded when it lands.
package gallery

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"wallview/internal/notify"
	"wallview/pkg/models"
)

// DefaultCategory is the category shown before the user picks one.
const DefaultCategory = 10

var errEmptyResponse = errors.New("empty response")

// Fetcher retrieves one page of wallpapers starting at the given offset.
type Fetcher interface {
	FetchByCategory(ctx context.Context, categoryID, start int) (*models.Envelope, error)
	FetchBySearch(ctx context.Context, start int, keyword string) (*models.Envelope, error)
}

// Snapshot is a copy of the gallery fields at one point in time.
type Snapshot struct {
	Wallpapers []models.Wallpaper
	Category   int
	Keyword    string
	Start      int
	Loading    bool
	HasMore    bool
	SearchMode bool
	Err        string
}

func (s Snapshot) Total() int {
	return len(s.Wallpapers)
}

// LoadingMore reports a load that extends an already visible collection.
func (s Snapshot) LoadingMore() bool {
	return s.Loading && len(s.Wallpapers) > 0
}

type State struct {
	fetcher         Fetcher
	logger          *slog.Logger
	defaultCategory int

	mu         sync.Mutex
	wallpapers []models.Wallpaper
	category   int
	keyword    string
	start      int
	loading    bool
	hasMore    bool
	searchMode bool
	err        string

	// epoch changes whenever the filter context is replaced.
	epoch  uint64
	cancel context.CancelFunc

	hub notify.Hub[Snapshot]
}

type Option func(*State)

func WithDefaultCategory(id int) Option {
	return func(s *State) { s.defaultCategory = id }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.logger = l }
}

func New(fetcher Fetcher, opts ...Option) *State {
	s := &State{
		fetcher:         fetcher,
		logger:          slog.Default(),
		defaultCategory: DefaultCategory,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return s
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *State) Subscribe(fn func(Snapshot)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Load fetches the next page for the active filter. It does nothing while a
// load is already running or once the collection is exhausted. Failures are
// recorded in the snapshot's Err field and also returned.
func (s *State) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.err = ""
	epoch := s.epoch
	searchMode, category, keyword, start := s.searchMode, s.category, s.keyword, s.start

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(snap)

	var env *models.Envelope
	var err error
	if searchMode {
		env, err = s.fetcher.FetchBySearch(ctx, start, keyword)
	} else {
		env, err = s.fetcher.FetchByCategory(ctx, category, start)
	}
	if err == nil {
		if env == nil {
			err = errEmptyResponse
		} else {
			err = env.Err()
		}
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding page for replaced filter",
			"category", category, "keyword", keyword, "start", start)
		return nil
	}
	s.loading = false
	s.cancel = nil
	if err != nil {
		s.err = err.Error()
	} else {
		s.appendPageLocked(env)
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to load wallpapers",
			"search", searchMode, "category", category, "keyword", keyword, "start", start, "error", err)
	} else {
		s.logger.Debug("loaded wallpapers",
			"search", searchMode, "category", category, "start", start, "total", snap.Total(), "has_more", snap.HasMore)
	}
	s.hub.Publish(snap)
	return err
}

// ChangeCategory discards the collection, switches to category mode and loads
// the first page of id.
func (s *State) ChangeCategory(ctx context.Context, id int) error {
	s.mu.Lock()
	s.clearCollectionLocked()
	s.category = id
	s.searchMode = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
	return s.Load(ctx)
}

// SearchWallpapers discards the collection, switches to search mode and loads
// the first page of results for keyword.
func (s *State) SearchWallpapers(ctx context.Context, keyword string) error {
	s.mu.Lock()
	s.clearCollectionLocked()
	s.keyword = keyword
	s.searchMode = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
	return s.Load(ctx)
}

// Reset restores every field to its initial value.
func (s *State) Reset() {
	s.mu.Lock()
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
}

func (s *State) resetLocked() {
	s.clearCollectionLocked()
	s.category = s.defaultCategory
	s.searchMode = false
	s.keyword = ""
}

// clearCollectionLocked abandons any in-flight load and empties the collection.
func (s *State) clearCollectionLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
	s.wallpapers = nil
	s.start = 0
	s.loading = false
	s.hasMore = true
	s.err = ""
}

func (s *State) appendPageLocked(env *models.Envelope) {
	if len(env.Data) == 0 {
		// A successful but empty page ends paging. Leaving hasMore set
		// would refetch the same offset forever.
		s.hasMore = false
		return
	}
	s.wallpapers = append(s.wallpapers, env.Data...)
	s.start += len(env.Data)
	// A missing or unparseable total never proves there is more to load.
	s.hasMore = env.Total.Known && env.Total.Value > len(s.wallpapers)
}

func (s *State) snapshotLocked() Snapshot {
	var wallpapers []models.Wallpaper
	if len(s.wallpapers) > 0 {
		wallpapers = make([]models.Wallpaper, len(s.wallpapers))
		copy(wallpapers, s.wallpapers)
	}
	return Snapshot{
		Wallpapers: wallpapers,
		Category:   s.category,
		Keyword:    s.keyword,
		Start:      s.start,
		Loading:    s.loading,
		HasMore:    s.hasMore,
		SearchMode: s.searchMode,
		Err:        s.err,
	}
}
