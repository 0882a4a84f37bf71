package display

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/metrovox/internal/catalog"
	"github.com/hammamikhairi/metrovox/internal/domain"
)

type recordingAnnouncer struct {
	spoken []string
	stops  int
}

func (a *recordingAnnouncer) Speak(e domain.Entry) { a.spoken = append(a.spoken, e.Label) }
func (a *recordingAnnouncer) StopAll()             { a.stops++ }

type fixedStatus struct {
	speaking bool
	queue    int
	current  string
}

func (s fixedStatus) IsSpeaking() bool { return s.speaking }
func (s fixedStatus) QueueLen() int    { return s.queue }
func (s fixedStatus) Current() string  { return s.current }

func setupBoard(t *testing.T, status Status) (board, *recordingAnnouncer) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ann := &recordingAnnouncer{}
	return newBoard(cat, ann, status), ann
}

func press(t *testing.T, m board, keys ...tea.KeyMsg) board {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(board)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestBoardSpeaksSelectedEntry(t *testing.T) {
	m, ann := setupBoard(t, nil)

	first := m.groups[0].Entries[0].Label
	second := m.groups[0].Entries[1].Label

	m = press(t, m, keyEnter, keyDown, keyEnter)

	if len(ann.spoken) != 2 || ann.spoken[0] != first || ann.spoken[1] != second {
		t.Fatalf("expected [%s %s], got %v", first, second, ann.spoken)
	}
	if !strings.Contains(m.action, second) {
		t.Fatalf("expected last action to name %s, got %q", second, m.action)
	}
}

func TestBoardStopKeys(t *testing.T) {
	m, ann := setupBoard(t, nil)

	m = press(t, m, runes("s"), keyEsc)

	if ann.stops != 2 {
		t.Fatalf("expected 2 stops, got %d", ann.stops)
	}
	if len(ann.spoken) != 0 {
		t.Fatalf("stop keys spoke: %v", ann.spoken)
	}
}

func TestBoardTabNavigation(t *testing.T) {
	m, ann := setupBoard(t, nil)
	n := len(m.groups)

	m = press(t, m, keyRight)
	if m.tab != 1 {
		t.Fatalf("expected tab 1, got %d", m.tab)
	}

	m = press(t, m, keyLeft, keyLeft)
	if m.tab != n-1 {
		t.Fatalf("expected wrap to last tab %d, got %d", n-1, m.tab)
	}

	m = press(t, m, keyEnter)
	want := m.groups[n-1].Entries[0].Label
	if len(ann.spoken) != 1 || ann.spoken[0] != want {
		t.Fatalf("expected %s from last tab, got %v", want, ann.spoken)
	}
}

func TestBoardCursorPerTabAndBounds(t *testing.T) {
	m, _ := setupBoard(t, nil)

	m = press(t, m, keyUp)
	if m.cursors[0] != 0 {
		t.Fatalf("cursor moved above first entry: %d", m.cursors[0])
	}

	last := len(m.groups[0].Entries) - 1
	for i := 0; i < last+3; i++ {
		m = press(t, m, keyDown)
	}
	if m.cursors[0] != last {
		t.Fatalf("expected cursor clamped at %d, got %d", last, m.cursors[0])
	}

	m = press(t, m, keyRight)
	if m.cursors[1] != 0 {
		t.Fatalf("second tab cursor should start at 0, got %d", m.cursors[1])
	}
	m = press(t, m, keyLeft)
	if m.cursors[0] != last {
		t.Fatalf("first tab cursor lost: %d", m.cursors[0])
	}
}

func TestBoardQuit(t *testing.T) {
	m, _ := setupBoard(t, nil)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestBoardStatusBar(t *testing.T) {
	m, _ := setupBoard(t, fixedStatus{speaking: true, queue: 3, current: "車門即將關閉。"})

	next, _ := m.Update(tickMsg{})
	m = next.(board)

	bar := m.renderBar()
	for _, want := range []string{"speaking", "車門即將關閉", "queued: 3"} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar missing %q: %s", want, bar)
		}
	}
}

func TestBoardViewShowsEntry(t *testing.T) {
	m, _ := setupBoard(t, nil)
	view := m.View()

	e := m.groups[0].Entries[0]
	for _, want := range []string{m.groups[0].Title, e.Label, e.EnText} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestReading(t *testing.T) {
	if got := reading("北"); got != "běi" {
		t.Fatalf("expected běi, got %q", got)
	}
	if got := reading("Doors closing."); got != "" {
		t.Fatalf("expected empty reading for Latin text, got %q", got)
	}
}

func TestSignalReadyClosesChannel(t *testing.T) {
	if signalReady(nil) != nil {
		t.Fatal("expected no command without a ready channel")
	}

	ch := make(chan struct{})
	cmd := signalReady(ch)
	if msg := cmd(); msg != nil {
		t.Fatalf("expected nil message, got %v", msg)
	}
	select {
	case <-ch:
	default:
		t.Fatal("ready channel not closed")
	}
}
