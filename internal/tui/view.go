package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"wallview/pkg/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	sidebarStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	viewerStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("212")).Padding(0, 1)
)

const sidebarWidth = 22

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")

	if m.vsnap.Open {
		b.WriteString(m.viewerView())
	} else {
		body := m.listView()
		if m.vsnap.SidebarOpen {
			body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), " ", body)
		}
		b.WriteString(body)
	}

	b.WriteString("\n")
	if m.focus == focusSearch {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) headerView() string {
	filter := fmt.Sprintf("category %d", m.gsnap.Category)
	if name := m.categoryName(m.gsnap.Category); name != "" {
		filter = fmt.Sprintf("%s (%d)", name, m.gsnap.Category)
	}
	if m.gsnap.SearchMode {
		filter = fmt.Sprintf("search %q", m.gsnap.Keyword)
	}
	return titleStyle.Render(models.AppName) + dimStyle.Render(" · "+filter)
}

func (m Model) footerView() string {
	line := statusLine(m.gsnap)
	if m.gsnap.Loading {
		line = m.spinner.View() + " " + line
	}
	if m.gsnap.Err != "" {
		line = errorStyle.Render(line)
	} else {
		line = dimStyle.Render(line)
	}
	if m.status != "" && m.status != m.gsnap.Err {
		line += dimStyle.Render(" · " + m.status)
	}
	return line + "\n" + m.help.View(m.keys)
}

func (m Model) listRows() int {
	rows := m.height - 5
	if m.help.ShowAll {
		rows -= 4
	}
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m Model) listView() string {
	items := m.gsnap.Wallpapers
	if len(items) == 0 {
		return dimStyle.Render("  nothing loaded yet")
	}

	rows := m.listRows()
	first := 0
	if m.cursor >= rows {
		first = m.cursor - rows + 1
	}
	last := min(first+rows, len(items))

	width := m.width
	if m.vsnap.SidebarOpen {
		width -= sidebarWidth + 3
	}

	lines := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		line := rowText(i, items[i], width)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func rowText(i int, w models.Wallpaper, width int) string {
	tags := strings.Join(w.Tags(), " ")
	if tags == "" {
		tags = "untitled"
	}
	line := fmt.Sprintf("%4d  %-10s %-10s %s", i+1, w.ID, w.Resolution, tags)
	if width > 0 {
		line = truncate(line, width)
	}
	return line
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return ""
	}
	runes := []rune(s)
	for lipgloss.Width(string(runes)) > width-1 && len(runes) > 0 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func (m Model) sidebarView() string {
	if len(m.cats) == 0 {
		return sidebarStyle.Width(sidebarWidth).Render(dimStyle.Render("no categories"))
	}
	lines := make([]string, 0, len(m.cats))
	for i, c := range m.cats {
		line := truncate(fmt.Sprintf("%-3d %s", c.ID, c.Name), sidebarWidth)
		if c.ID == m.gsnap.Category && !m.gsnap.SearchMode {
			line = titleStyle.Render(line)
		}
		if i == m.catCursor && m.focus == focusSidebar {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return sidebarStyle.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m Model) viewerView() string {
	if m.vsnap.Current == nil {
		return ""
	}
	title := fmt.Sprintf("%d / %d  %s", m.vsnap.Index+1, m.vsnap.TotalImages, m.vsnap.Current.ID)
	hints := dimStyle.Render("←/→ navigate · o open image · esc close")
	return viewerStyle.Render(titleStyle.Render(title) + "\n" + m.detail.View() + "\n" + hints)
}

func (m Model) categoryName(id int) string {
	for _, c := range m.cats {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func detailText(w models.Wallpaper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tags        %s\n", strings.Join(w.Tags(), ", "))
	if w.Resolution != "" {
		fmt.Fprintf(&b, "resolution  %s\n", w.Resolution)
	}
	fmt.Fprintf(&b, "url         %s\n", w.URL)
	if w.Img1024x768 != "" {
		fmt.Fprintf(&b, "preview     %s\n", w.Img1024x768)
	}

	keys := make([]string, 0, len(w.Extra))
	for k := range w.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%-11s %s\n", k, strings.Trim(string(w.Extra[k]), `"`))
	}
	return strings.TrimRight(b.String(), "\n")
}
