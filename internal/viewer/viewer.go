// Package viewer tracks the image viewer overlay and the sidebar panel.
package viewer

import (
	"sync"

	"wallview/internal/notify"
	"wallview/pkg/models"
)

type Snapshot struct {
	Open        bool
	Current     *models.Wallpaper
	Index       int
	TotalImages int
	SidebarOpen bool
}

type State struct {
	mu          sync.Mutex
	open        bool
	current     *models.Wallpaper
	index       int
	totalImages int
	sidebarOpen bool

	hub notify.Hub[Snapshot]
}

func New() *State {
	return &State{}
}

func (s *State) Subscribe(fn func(Snapshot)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// OpenViewer shows w at index out of total. The caller is responsible for the
// three values agreeing with each other.
func (s *State) OpenViewer(w models.Wallpaper, index, total int) {
	s.update(func() {
		s.current = &w
		s.index = index
		s.totalImages = total
		s.open = true
	})
}

// CloseViewer hides the viewer. The total is left as it was.
func (s *State) CloseViewer() {
	s.update(func() {
		s.open = false
		s.current = nil
		s.index = 0
	})
}

// NextImage steps forward through collection, stopping at the last record.
func (s *State) NextImage(collection []models.Wallpaper) {
	s.step(collection, 1)
}

// PrevImage steps backward through collection, stopping at the first record.
func (s *State) PrevImage(collection []models.Wallpaper) {
	s.step(collection, -1)
}

func (s *State) step(collection []models.Wallpaper, delta int) {
	s.mu.Lock()
	next := s.index + delta
	if next < 0 || next >= len(collection) {
		s.mu.Unlock()
		return
	}
	w := collection[next]
	s.index = next
	s.current = &w
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
}

func (s *State) ToggleSidebar() {
	s.update(func() { s.sidebarOpen = !s.sidebarOpen })
}

func (s *State) OpenSidebar() {
	s.update(func() { s.sidebarOpen = true })
}

func (s *State) CloseSidebar() {
	s.update(func() { s.sidebarOpen = false })
}

func (s *State) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
}

func (s *State) snapshotLocked() Snapshot {
	var current *models.Wallpaper
	if s.current != nil {
		w := *s.current
		current = &w
	}
	return Snapshot{
		Open:        s.open,
		Current:     current,
		Index:       s.index,
		TotalImages: s.totalImages,
		SidebarOpen: s.sidebarOpen,
	}
}
