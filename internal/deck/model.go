// Package deck is the terminal host of the DJ deck. It renders the waveform
// and feeds keyboard and mouse input into a session.
package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/gesture"
	"github.com/ewilliams-labs/rockdj/internal/core/session"
	"github.com/ewilliams-labs/rockdj/internal/core/slices"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

const (
	frameInterval = 50 * time.Millisecond
	waveHeight    = 4
	// waveTop is the first screen row of the waveform.
	waveTop = 2
	// laneRows is the waveform plus the beat grid and slice rows.
	laneRows = waveHeight + 2
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	playedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	waveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	headStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	muteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	selStyle    = lipgloss.NewStyle().Reverse(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type (
	frameMsg     time.Time
	playlistsMsg struct {
		items []domain.Playlist
		err   error
	}
	analysisMsg struct {
		trackID  string
		analysis domain.TrackAnalysis
		err      error
	}
	statusMsg struct {
		text string
		err  error
	}
)

// Model is the bubbletea model of the deck.
type Model struct {
	ctx     context.Context
	session *session.Session
	svc     Service
	logger  *log.Logger

	width, height int

	playlists []domain.Playlist
	selected  int

	analysisFor string
	analysis    *domain.TrackAnalysis

	pointer pointer
	status  string
	err     error
}

// New returns a deck model driving s.
func New(ctx context.Context, s *session.Session, svc Service, logger *log.Logger) Model {
	return Model{ctx: ctx, session: s, svc: svc, logger: logger}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.connect(), m.loadPlaylists(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m Model) connect() tea.Cmd {
	return func() tea.Msg {
		ok, err := m.session.Bridge().Connect(m.ctx)
		if err != nil {
			return statusMsg{err: err}
		}
		if !ok {
			return statusMsg{text: "player did not connect"}
		}
		return statusMsg{text: "waiting for device"}
	}
}

func (m Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		var all []domain.Playlist
		cursor := 0
		for {
			page, err := m.svc.Playlists(m.ctx, cursor)
			if err != nil {
				return playlistsMsg{err: err}
			}
			all = append(all, page.Items...)
			if page.NextCursor == nil {
				return playlistsMsg{items: all}
			}
			cursor = *page.NextCursor
		}
	}
}

func (m Model) loadAnalysis(trackID string) tea.Cmd {
	return func() tea.Msg {
		a, err := m.svc.Analysis(m.ctx, trackID)
		return analysisMsg{trackID: trackID, analysis: a, err: err}
	}
}

// run executes a player command off the UI goroutine.
func (m Model) run(name string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(m.ctx); err != nil {
			return statusMsg{err: fmt.Errorf("%s: %w", name, err)}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.session.SetViewportWidth(float64(msg.Width))
		return m, nil

	case frameMsg:
		m.session.Frame(time.Time(msg))
		cmds := []tea.Cmd{tick()}
		if id := m.session.Store().Get().Player.TrackID(); id != m.analysisFor {
			m.analysisFor, m.analysis = id, nil
			if id != "" {
				cmds = append(cmds, m.loadAnalysis(id))
			}
		}
		return m, tea.Batch(cmds...)

	case playlistsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.playlists = msg.items
		return m, nil

	case analysisMsg:
		if msg.trackID != m.analysisFor {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warnf("deck: analysis of %s: %v", msg.trackID, msg.err)
			m.err = msg.err
			return m, nil
		}
		a := msg.analysis
		m.analysis = &a
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.logger.Warnf("deck: %v", msg.err)
			m.err = msg.err
		} else {
			m.status, m.err = msg.text, nil
		}
		return m, nil

	case tea.KeyMsg:
		return m.key(msg)

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	st := s.Store().Get()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "space":
		return m, m.run("play/pause", s.TogglePlay)
	case "n":
		return m, m.run("next", s.Next)
	case "p":
		return m, m.run("previous", s.Previous)
	case "s":
		s.ToggleSlicing()
	case "t":
		e := s.TapTempo(time.Now())
		if e.HasTempo() {
			m.status = fmt.Sprintf("tap tempo %.1f bpm (%d taps)", e.Bpm, e.Taps)
		} else {
			m.status = "tap again"
		}
	case "r":
		s.ResetTempo()
		if m.analysis != nil {
			a := *m.analysis
			a.TapTempoBpm, a.BeatOffsetMs = nil, nil
			m.analysis = &a
		}
		m.status = "tap tempo cleared"
	case "m":
		s.ToggleSliceAt(st.Cursor)
	case "x":
		s.RemoveSliceAt(st.Cursor)
	case "+", "=":
		s.Zoom(st.Viewport.ScaleX*wheelZoom, float64(m.width)/2)
	case "-":
		s.Zoom(st.Viewport.ScaleX/wheelZoom, float64(m.width)/2)
	case "left":
		s.Pan(-float64(m.width) / 10)
	case "right":
		s.Pan(float64(m.width) / 10)
	case "up":
		if m.selected > 0 {
			m.selected--
		}
	case "down":
		if m.selected < len(m.playlists)-1 {
			m.selected++
		}
	case "enter":
		if m.selected < len(m.playlists) {
			intent := domain.PlaybackIntent{PlaylistURI: m.playlists[m.selected].URI}
			m.status = "playing " + m.playlists[m.selected].Name
			return m, m.run("play", func(ctx context.Context) error { return s.Play(ctx, intent) })
		}
	}
	return m, nil
}

func (m *Model) mouse(msg tea.MouseMsg) {
	x := float64(msg.X)
	overLane := msg.Y >= waveTop && msg.Y < waveTop+laneRows
	if !overLane && !m.pointer.pressed {
		return
	}

	var ev gesture.Event
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		ev = wheel(x, true)
	case msg.Button == tea.MouseButtonWheelDown:
		ev = wheel(x, false)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		id, h, ok := m.session.HitHandle(x)
		ev = m.pointer.press(x, id, h, ok)
	case msg.Action == tea.MouseActionMotion:
		ev = m.pointer.motion(x)
	case msg.Action == tea.MouseActionRelease:
		ev = m.pointer.release(x)
	}
	if ev != nil {
		m.session.Pointer(ev)
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	st := m.session.Store().Get()
	var b strings.Builder

	b.WriteString(m.header(st.Player, st.Slicing, st.Reconnecting))
	b.WriteString("\n\n")

	l := lane{
		width:      m.width,
		mapper:     st.Mapper(),
		positionMs: st.Player.PositionMs,
		slices:     st.Slices,
	}
	if st.SliceTrackID != st.Player.TrackID() {
		l.slices = nil
	}
	if a := m.analysis; a != nil {
		l.beats = a.Beats
		l.bpm, l.offsetMs = a.EffectiveTempo(), a.EffectiveBeatOffset()
	}
	if e := m.session.Tempo(); e.HasTempo() {
		l.bpm, l.offsetMs = e.Bpm, e.BeatOffsetMs
	}
	if d, ok := m.session.Draft().(slices.AnchorPlaced); ok {
		anchor := d.AnchorMs
		l.anchorMs = &anchor
	}

	head := l.column(st.Player.PositionMs)
	for _, row := range l.waveRows(waveHeight) {
		b.WriteString(styleWave(row, head))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(l.gridRow()))
	b.WriteString("\n")
	b.WriteString(muteStyle.Render(l.sliceRow()))
	b.WriteString("\n\n")

	b.WriteString(m.playlistView())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
	} else {
		b.WriteString(dimStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space play/pause · n/p next/prev · s slice · m mute · x delete · t tap · r reset · +/- zoom · ←/→ pan · q quit"))
	return b.String()
}

func (m Model) header(p domain.PlaybackState, slicing, reconnecting bool) string {
	title := "nothing playing"
	if t := p.CurrentTrack; t != nil {
		title = t.Name
		if len(t.Artists) > 0 {
			title += " · " + strings.Join(t.Artists, ", ")
		}
	}
	state := "▶"
	if p.Paused {
		state = "⏸"
	}
	var flags []string
	if !p.HasDevice() {
		flags = append(flags, "no device")
	}
	if reconnecting {
		flags = append(flags, "reconnecting")
	}
	if slicing {
		flags = append(flags, "SLICING")
	}
	line := fmt.Sprintf("%s %s  %s / %s", state, titleStyle.Render(title), clock(p.PositionMs), clock(p.DurationMs))
	if len(flags) > 0 {
		line += "  " + headStyle.Render("["+strings.Join(flags, "] [")+"]")
	}
	return line
}

func (m Model) playlistView() string {
	if len(m.playlists) == 0 {
		return dimStyle.Render("no playlists")
	}
	var rows []string
	for i, p := range m.playlists {
		row := fmt.Sprintf("%-40s %4d tracks", p.Name, p.TotalTracks)
		if i == m.selected {
			row = selStyle.Render(row)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// styleWave colours the played part of a waveform row and the playhead.
func styleWave(row string, head int) string {
	runes := []rune(row)
	if head < 0 || head >= len(runes) {
		return waveStyle.Render(row)
	}
	var b strings.Builder
	b.WriteString(playedStyle.Render(string(runes[:head])))
	b.WriteString(headStyle.Render("│"))
	b.WriteString(waveStyle.Render(string(runes[head+1:])))
	return b.String()
}

func clock(ms float64) string {
	total := int(ms / 1000)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
