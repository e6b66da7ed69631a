package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"wallview/internal/gallery"
	"wallview/internal/viewer"
	"wallview/pkg/models"
)

var ErrNotTerminal = errors.New("stdin is not a tty")

// CategorySource lists the categories shown in the sidebar.
type CategorySource interface {
	FetchCategories(ctx context.Context) ([]models.Category, error)
}

type focus int

const (
	focusGrid focus = iota
	focusSearch
	focusSidebar
)

// galleryChangedMsg tells the model to re-read the gallery. The snapshot is
// not carried because publishes from concurrent loads may arrive out of order.
type galleryChangedMsg struct{}

type loadDoneMsg struct {
	err error
}

type categoriesMsg struct {
	categories []models.Category
	err        error
}

type statusMsg string

type Model struct {
	ctx        context.Context
	gallery    *gallery.State
	viewer     *viewer.State
	categories CategorySource
	openURL    func(string) error

	initialQuery string

	gsnap     gallery.Snapshot
	vsnap     viewer.Snapshot
	cats      []models.Category
	catCursor int
	cursor    int
	focus     focus
	status    string

	search  textinput.Model
	spinner spinner.Model
	detail  viewport.Model
	help    help.Model
	keys    keyMap

	width  int
	height int
}

type Option func(*Model)

// WithQuery starts the browser with a search instead of the default category.
func WithQuery(q string) Option {
	return func(m *Model) { m.initialQuery = strings.TrimSpace(q) }
}

func WithOpener(fn func(string) error) Option {
	return func(m *Model) { m.openURL = fn }
}

func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

func New(g *gallery.State, v *viewer.State, cats CategorySource, opts ...Option) Model {
	search := textinput.New()
	search.Placeholder = "search wallpapers"
	search.Prompt = "/ "
	search.CharLimit = 64

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:        context.Background(),
		gallery:    g,
		viewer:     v,
		categories: cats,
		openURL:    OpenInViewer,
		gsnap:      g.Snapshot(),
		vsnap:      v.Snapshot(),
		search:     search,
		spinner:    sp,
		detail:     viewport.New(0, 0),
		help:       help.New(),
		keys:       defaultKeys(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Subscribe forwards gallery changes into p. Gallery operations run inside
// commands, never inside Update, so Send cannot block the event loop.
func Subscribe(p *tea.Program, g *gallery.State) (cancel func()) {
	return g.Subscribe(func(gallery.Snapshot) {
		p.Send(galleryChangedMsg{})
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchCategories(), m.initialLoad())
}

func (m Model) initialLoad() tea.Cmd {
	if m.initialQuery != "" {
		q := m.initialQuery
		return m.run(func(ctx context.Context) error { return m.gallery.SearchWallpapers(ctx, q) })
	}
	return m.run(m.gallery.Load)
}

func (m Model) fetchCategories() tea.Cmd {
	if m.categories == nil {
		return nil
	}
	src, ctx := m.categories, m.ctx
	return func() tea.Msg {
		cats, err := src.FetchCategories(ctx)
		return categoriesMsg{categories: cats, err: err}
	}
}

func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadDoneMsg{err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeDetail()
		return m, nil

	case galleryChangedMsg:
		m.syncGallery()
		return m, nil

	case loadDoneMsg:
		m.syncGallery()
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = ""
		}
		return m, nil

	case categoriesMsg:
		if msg.err != nil {
			m.status = "categories: " + msg.err.Error()
			return m, nil
		}
		m.cats = msg.categories
		for i, c := range m.cats {
			if c.ID == m.gsnap.Category {
				m.catCursor = i
			}
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus == focusSearch {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch {
	case m.vsnap.Open:
		return m.handleViewerKey(msg)
	case m.focus == focusSearch:
		return m.handleSearchKey(msg)
	case m.focus == focusSidebar:
		return m.handleSidebarKey(msg)
	}
	return m.handleGridKey(msg)
}

func (m Model) handleGridKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	total := m.gsnap.Total()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < total-1 {
			m.cursor++
		}
		if m.cursor >= total-1 && m.gsnap.HasMore && !m.gsnap.Loading {
			return m, m.run(m.gallery.Load)
		}
	case key.Matches(msg, m.keys.Open):
		if m.cursor < total {
			m.viewer.OpenViewer(m.gsnap.Wallpapers[m.cursor], m.cursor, total)
			m.syncViewer()
		}
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		m.search.SetValue("")
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Sidebar):
		m.viewer.ToggleSidebar()
		m.syncViewer()
		if m.vsnap.SidebarOpen {
			m.focus = focusSidebar
		}
	case key.Matches(msg, m.keys.More), key.Matches(msg, m.keys.Retry):
		return m, m.run(m.gallery.Load)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focus = focusGrid
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		keyword := strings.TrimSpace(m.search.Value())
		m.focus = focusGrid
		m.search.Blur()
		if keyword == "" {
			m.status = "Empty query"
			return m, nil
		}
		m.cursor = 0
		return m, m.run(func(ctx context.Context) error {
			return m.gallery.SearchWallpapers(ctx, keyword)
		})
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Sidebar), key.Matches(msg, m.keys.Close):
		m.viewer.CloseSidebar()
		m.syncViewer()
		m.focus = focusGrid
	case key.Matches(msg, m.keys.Up):
		if m.catCursor > 0 {
			m.catCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.catCursor < len(m.cats)-1 {
			m.catCursor++
		}
	case key.Matches(msg, m.keys.Open):
		if m.catCursor < len(m.cats) {
			id := m.cats[m.catCursor].ID
			m.cursor = 0
			m.focus = focusGrid
			m.viewer.CloseSidebar()
			m.syncViewer()
			return m, m.run(func(ctx context.Context) error {
				return m.gallery.ChangeCategory(ctx, id)
			})
		}
	}
	return m, nil
}

func (m Model) handleViewerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Quit):
		m.cursor = m.vsnap.Index
		m.viewer.CloseViewer()
		m.syncViewer()
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.viewer.PrevImage(m.gsnap.Wallpapers)
		m.syncViewer()
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.viewer.NextImage(m.gsnap.Wallpapers)
		m.syncViewer()
		if m.vsnap.Index >= m.gsnap.Total()-1 && m.gsnap.HasMore && !m.gsnap.Loading {
			return m, m.run(m.gallery.Load)
		}
		return m, nil
	case key.Matches(msg, m.keys.External):
		if m.vsnap.Current == nil {
			return m, nil
		}
		target, open := m.vsnap.Current.URL, m.openURL
		return m, func() tea.Msg {
			if err := open(target); err != nil {
				return statusMsg("open failed: " + err.Error())
			}
			return statusMsg("opened " + target)
		}
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) syncGallery() {
	m.gsnap = m.gallery.Snapshot()
	if m.cursor >= m.gsnap.Total() {
		m.cursor = max(m.gsnap.Total()-1, 0)
	}
}

func (m *Model) syncViewer() {
	m.vsnap = m.viewer.Snapshot()
	if m.vsnap.Current != nil {
		m.detail.SetContent(detailText(*m.vsnap.Current))
		m.detail.GotoTop()
	}
}

func (m *Model) resizeDetail() {
	m.detail.Width = max(m.width-4, 0)
	m.detail.Height = max(m.height-8, 0)
}

func statusLine(s gallery.Snapshot) string {
	switch {
	case s.LoadingMore():
		return "Loading more..."
	case s.Loading:
		return "Loading..."
	case s.Err != "":
		return "Error: " + s.Err + " (r to retry)"
	case s.Total() == 0:
		return "No wallpapers"
	case !s.HasMore:
		return fmt.Sprintf("%d wallpapers, end of results", s.Total())
	}
	return fmt.Sprintf("%d wallpapers", s.Total())
}
