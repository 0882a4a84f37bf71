// Package display provides the announcement board using Bubble Tea.
//
// The board shows one tab per catalog group. Each entry is a button;
// pressing it hands the entry to the [domain.Announcer]. A status bar at
// the bottom polls the playback channel so the operator can see what is
// being spoken and how much is queued.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/metrovox/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	// BannerStyle is the muted slate used for the banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	tabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("#a1a1aa"))

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder())

	// Mandarin line.
	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	// Pinyin and English lines.
	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))
)

// defaultTint is used when an entry or group carries no tint.
const defaultTint = "#94a3b8"

// statusInterval is how often the status bar polls the playback channel.
const statusInterval = 200 * time.Millisecond

// Status is the read-only view of the playback channel shown in the
// status bar.
type Status interface {
	IsSpeaking() bool
	QueueLen() int
	Current() string
}

// ── UI ───────────────────────────────────────────────────────────

// UI runs the board. Call [NewUI] then [UI.Run] (blocking). [UI.Quit] may
// be called from any goroutine.
type UI struct {
	program *tea.Program
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the board for cat. status may be nil, in which case the
// status bar only shows the last action.
func NewUI(cat *domain.Catalog, announcer domain.Announcer, status Status) *UI {
	u := &UI{
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
	m := newBoard(cat, announcer, status)
	m.readyCh = u.readyCh
	u.program = tea.NewProgram(m, tea.WithAltScreen())
	return u
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if !u.done.Load() {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type board struct {
	groups    []domain.Group
	tab       int
	cursors   []int // selected entry per tab
	announcer domain.Announcer
	status    Status
	readyCh   chan struct{}

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	speaking bool
	queued   int
	current  string
	action   string // last operator action
	width    int
}

type tickMsg time.Time

func newBoard(cat *domain.Catalog, announcer domain.Announcer, status Status) board {
	groups := cat.Groups()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = speakingStyle
	return board{
		groups:    groups,
		cursors:   make([]int, len(groups)),
		announcer: announcer,
		status:    status,
		keys:      defaultKeys(),
		help:      help.New(),
		spinner:   sp,
	}
}

func (m board) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
		signalReady(m.readyCh),
		tea.SetWindowTitle("metrovox"),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.refreshStatus()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.groups)
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		m.announcer.StopAll()
		m.action = "■ stopped"
		m.refreshStatus()

	case key.Matches(msg, m.keys.Speak):
		if e, ok := m.selected(); ok {
			m.announcer.Speak(e)
			m.action = "▶ " + e.Label
		}

	case key.Matches(msg, m.keys.Next):
		if n > 0 {
			m.tab = (m.tab + 1) % n
		}

	case key.Matches(msg, m.keys.Prev):
		if n > 0 {
			m.tab = (m.tab - 1 + n) % n
		}

	case key.Matches(msg, m.keys.Up):
		if n > 0 && m.cursors[m.tab] > 0 {
			m.cursors = m.withCursor(m.cursors[m.tab] - 1)
		}

	case key.Matches(msg, m.keys.Down):
		if n > 0 && m.cursors[m.tab] < len(m.groups[m.tab].Entries)-1 {
			m.cursors = m.withCursor(m.cursors[m.tab] + 1)
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// withCursor returns a copy of the cursor slice with the current tab set
// to c. Models are values, so the backing array must not be shared.
func (m board) withCursor(c int) []int {
	out := make([]int, len(m.cursors))
	copy(out, m.cursors)
	out[m.tab] = c
	return out
}

func (m board) selected() (domain.Entry, bool) {
	if m.tab >= len(m.groups) {
		return domain.Entry{}, false
	}
	entries := m.groups[m.tab].Entries
	c := m.cursors[m.tab]
	if c >= len(entries) {
		return domain.Entry{}, false
	}
	return entries[c], true
}

func (m *board) refreshStatus() {
	if m.status == nil {
		return
	}
	m.speaking = m.status.IsSpeaking()
	m.queued = m.status.QueueLen()
	m.current = m.status.Current()
}

// ── View ─────────────────────────────────────────────────────────

func (m board) View() string {
	var b strings.Builder

	b.WriteString(RenderBanner(m.width))
	b.WriteByte('\n')
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderButtons())
	b.WriteString("\n\n")
	b.WriteString(m.renderDetail())
	b.WriteString("\n\n")
	b.WriteString(m.renderBar())
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m board) renderTabs() string {
	var tabs []string
	for i, g := range m.groups {
		st := tabStyle
		if i == m.tab {
			st = st.Bold(true).
				Foreground(lipgloss.Color("#18181b")).
				Background(lipgloss.Color(tint(g.Tint)))
		}
		tabs = append(tabs, st.Render(g.Title))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m board) renderButtons() string {
	if m.tab >= len(m.groups) {
		return secondaryStyle.Render("  (empty catalog)")
	}
	var rows []string
	for i, e := range m.groups[m.tab].Entries {
		c := lipgloss.Color(tint(e.Tint))
		st := buttonStyle.BorderForeground(c).Foreground(c)
		if i == m.cursors[m.tab] {
			st = st.Bold(true).Foreground(lipgloss.Color("#18181b")).Background(c)
		}
		rows = append(rows, st.Render(e.Label))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m board) renderDetail() string {
	e, ok := m.selected()
	if !ok {
		return ""
	}
	lines := []string{primaryStyle.Render("  " + e.ZhText)}
	if r := reading(e.ZhText); r != "" {
		lines = append(lines, secondaryStyle.Render("  "+r))
	}
	lines = append(lines, secondaryStyle.Render("  "+e.EnText))
	return strings.Join(lines, "\n")
}

func (m board) renderBar() string {
	var parts []string
	if m.speaking {
		parts = append(parts, m.spinner.View()+speakingStyle.Render(" speaking: "+clip(m.current, 40)))
	} else {
		parts = append(parts, idleStyle.Render("idle"))
	}
	if m.queued > 0 {
		parts = append(parts, fmt.Sprintf("queued: %d", m.queued))
	}
	if m.action != "" {
		parts = append(parts, actionStyle.Render(m.action))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}

// ── Helpers ──────────────────────────────────────────────────────

func tint(t string) string {
	if t == "" {
		return defaultTint
	}
	return t
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
