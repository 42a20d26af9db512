package main

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sama/audio"
	"sama/beep"
	"sama/log"
	"sama/vapi"
)

// TUI message types. Domain events double as messages and are routed
// through handleEvent; everything else is plumbing.
type callReadyMsg struct{ call vapi.Call }
type startFailedMsg struct{ err error }
type callClosedMsg struct{ call vapi.Call }
type micLevelMsg struct{ level float64 }
type copiedMsg struct{}
type copyClearMsg struct{}
type ringTickMsg time.Time

const (
	ringFrameInterval = 60 * time.Millisecond
	copiedFlashDur    = 1500 * time.Millisecond
	startCallTimeout  = 30 * time.Second
)

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// tuiSend delivers a message from any goroutine. Messages from one
// sender keep their order, which the session layer depends on.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

var (
	statusIdleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusConnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	statusLiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	statusErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	speakingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("140"))
	meterStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("108"))
	meterMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	micWarnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	youTagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	samaTagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("176")).Bold(true)
	youTextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	samaTextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	openTextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	copiedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// micStream pumps capture buffers into the live call and publishes one
// level sample per buffer. The callback runs on the audio thread; only
// atomics are touched there.
type micStream struct {
	capture audio.CaptureDevice

	muted   atomic.Bool
	frames  atomic.Uint64
	bytes   atomic.Uint64
	running bool
}

func newMicStream(capture audio.CaptureDevice) *micStream {
	return &micStream{capture: capture}
}

func (s *micStream) start(call vapi.Call) error {
	if s.running {
		return nil
	}
	s.frames.Store(0)
	s.bytes.Store(0)
	s.capture.SetCallback(func(data []byte, _ uint32) {
		if len(data) == 0 {
			return
		}
		s.frames.Add(1)
		s.bytes.Add(uint64(len(data)))
		if !s.muted.Load() {
			call.Feed(data)
		}
		tuiSend(micLevelMsg{level: micRMS(data)})
	})
	if err := s.capture.Start(); err != nil {
		s.capture.ClearCallback()
		return err
	}
	s.running = true
	return nil
}

func (s *micStream) stop() {
	if !s.running {
		return
	}
	s.running = false
	s.capture.Stop()
	s.capture.ClearCallback()
}

func (s *micStream) ToggleMute() { s.muted.Store(!s.muted.Load()) }
func (s *micStream) Muted() bool { return s.muted.Load() }

func (s *micStream) Frames() uint64  { return s.frames.Load() }
func (s *micStream) KBytes() float64 { return float64(s.bytes.Load()) / 1024 }

// callCounters accumulate per-call diagnostics, reset at each start.
type callCounters struct {
	connectMs     float64
	events        int
	transcripts   int
	finals        int
	volumeSamples int
}

type tuiModel struct {
	connector vapi.Connector
	cfg       vapi.CallConfig

	session *callSession
	engine  *visualizer
	monitor *micMonitor
	mic     *micStream

	call vapi.Call

	dots        []ringDot
	ringRunning bool

	micLevel float64
	micWarn  bool
	copied   bool

	startedAt   time.Time
	connectedAt time.Time
	counters    callCounters
	calls       int

	width, height int
	quitting      bool
}

func newTUIModel(connector vapi.Connector, capture audio.CaptureDevice, cfg vapi.CallConfig, autoEnd bool) tuiModel {
	return tuiModel{
		connector: connector,
		cfg:       cfg,
		session:   newCallSession(),
		engine:    newVisualizer(),
		monitor:   newMicMonitor(autoEnd),
		mic:       newMicStream(capture),
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// No standing tick: the frame loop is armed by CallStarted and parks
// itself when the session leaves Connected. Idle costs nothing.
func (m tuiModel) Init() tea.Cmd {
	return nil
}

func ringTick() tea.Cmd {
	return tea.Tick(ringFrameInterval, func(t time.Time) tea.Msg {
		return ringTickMsg(t)
	})
}

func startCall(connector vapi.Connector, cfg vapi.CallConfig) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), startCallTimeout)
		defer cancel()
		call, err := connector.NewCall(ctx, cfg)
		if err != nil {
			return startFailedMsg{err: err}
		}
		return callReadyMsg{call: call}
	}
}

// pumpEvents drains the call's event stream into the update loop, one
// goroutine per call, preserving arrival order.
func pumpEvents(call vapi.Call) tea.Cmd {
	return func() tea.Msg {
		for raw := range call.Events() {
			if ev, ok := normalizeEvent(raw); ok {
				tuiSend(ev)
			}
		}
		return callClosedMsg{call: call}
	}
}

func copyTranscript(entries []TranscriptEntry) tea.Cmd {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Role.String())
		b.WriteString(": ")
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	text := b.String()
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			log.Warnf("clipboard copy failed: %v", err)
			return nil
		}
		return copiedMsg{}
	}
}

func copyClear() tea.Cmd {
	return tea.Tick(copiedFlashDur, func(time.Time) tea.Msg {
		return copyClearMsg{}
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case Event:
		return m.handleEvent(msg)

	case ringTickMsg:
		if !m.session.Active() {
			// park the loop; CallStarted re-arms it
			m.ringRunning = false
			m.engine.Reset()
			m.dots = nil
			return m, nil
		}
		m.dots = m.engine.Step()
		return m, ringTick()

	case callReadyMsg:
		if m.quitting {
			msg.call.Close()
			return m, nil
		}
		m.call = msg.call
		if err := m.mic.start(msg.call); err != nil {
			// the call still works one-way; keep going
			log.Errorf("mic start: %v", err)
		}
		return m, pumpEvents(msg.call)

	case startFailedMsg:
		m.session.StartFailed(startFailReason(msg.err))
		log.Errorf("call start failed: %v", msg.err)
		beep.PlayError()

	case callClosedMsg:
		msg.call.Close()
		if m.call == msg.call {
			m.call = nil
			m.mic.stop()
			m.logCallEnd()
			m.connectedAt = time.Time{}
		}

	case micLevelMsg:
		if m.mic.Muted() {
			return m, nil
		}
		m.micLevel = m.micLevel*0.6 + msg.level*0.4
		if !m.session.Active() {
			return m, nil
		}
		switch m.monitor.Sample(msg.level, m.session.Speaking()) {
		case MicWarn:
			m.micWarn = true
			log.Info("mic silence warning")
		case MicWarnClear:
			m.micWarn = false
		case MicAutoEnd:
			log.Info("mic silence auto-end")
			if m.session.RequestStop() && m.call != nil {
				m.call.Stop()
			}
		}

	case copiedMsg:
		m.copied = true
		return m, copyClear()

	case copyClearMsg:
		m.copied = false
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		if m.session.RequestStop() && m.call != nil {
			m.call.Stop()
		}
		return m, tea.Quit
	case " ", "space":
		return m.toggleCall()
	case "y":
		if entries := m.session.Entries(); len(entries) > 0 {
			return m, copyTranscript(entries)
		}
	case "m":
		m.mic.ToggleMute()
	}
	return m, nil
}

func (m tuiModel) toggleCall() (tea.Model, tea.Cmd) {
	if m.session.RequestStart() {
		m.startedAt = time.Now()
		m.counters = callCounters{}
		m.micWarn = false
		return m, startCall(m.connector, m.cfg)
	}
	// live: ask the server to wind the call down. An in-flight start
	// has no call yet and is left to resolve on its own.
	if m.session.RequestStop() && m.call != nil {
		m.call.Stop()
	}
	return m, nil
}

func (m tuiModel) handleEvent(ev Event) (tea.Model, tea.Cmd) {
	m.counters.events++

	switch e := ev.(type) {
	case Volume:
		// volume feeds the ring only, never the session
		m.counters.volumeSamples++
		m.engine.SetTarget(e.Level)
		return m, nil

	case CallStarted:
		m.session.Apply(e)
		m.monitor.Reset()
		m.micWarn = false
		m.connectedAt = time.Now()
		m.counters.connectMs = float64(time.Since(m.startedAt).Milliseconds())
		m.calls++
		log.CallConnected(m.currentCallID(), m.counters.connectMs)
		beep.PlayConnect()
		if !m.ringRunning {
			m.ringRunning = true
			return m, ringTick()
		}
		return m, nil

	case CallEnded:
		wasLive := m.session.Phase() == PhaseConnected
		m.session.Apply(e)
		if wasLive {
			beep.PlayDisconnect()
		}
		return m, nil

	case Transcript:
		m.session.Apply(e)
		m.counters.transcripts++
		if e.Final {
			m.counters.finals++
			log.TranscriptLine(e.Role.String(), e.Text)
		}
		return m, nil

	case TransportError:
		m.session.Apply(e)
		log.Errorf("call transport error: %s", e.Detail)
		beep.PlayError()
		return m, nil

	default:
		m.session.Apply(ev)
		return m, nil
	}
}

func (m tuiModel) currentCallID() string {
	if m.call != nil {
		return m.call.ID()
	}
	return ""
}

func (m tuiModel) logCallEnd() {
	dur := 0.0
	if !m.connectedAt.IsZero() {
		dur = time.Since(m.connectedAt).Seconds()
	}
	log.CallEnded(log.CallMetrics{
		ConnectMs:     m.counters.connectMs,
		DurationS:     dur,
		Events:        m.counters.events,
		Transcripts:   m.counters.transcripts,
		Finals:        m.counters.finals,
		VolumeSamples: m.counters.volumeSamples,
		MicFrames:     int(m.mic.Frames()),
		MicKB:         m.mic.KBytes(),
	})
}

// cleanup releases call resources after the program exits, covering
// quits that bypassed the normal teardown path.
func (m tuiModel) cleanup() {
	m.mic.stop()
	if m.call != nil {
		m.call.Stop()
		m.call.Close()
	}
}

func startFailReason(err error) string {
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func renderStatus(s *callSession) string {
	label := s.StatusLabel()
	switch s.Phase() {
	case PhaseConnecting:
		return statusConnStyle.Render("◌ " + label)
	case PhaseConnected:
		return statusLiveStyle.Render("● " + label)
	case PhaseError:
		return statusErrStyle.Render("✗ " + label)
	}
	return statusIdleStyle.Render("○ " + label)
}

func renderMicMeter(level float64, muted bool) string {
	if muted {
		return meterMutedStyle.Render("mic muted (m)")
	}
	const width = 14
	// capture RMS stays well under 1; stretch it for display
	filled := int(level*3*width + 0.5)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
	return meterStyle.Render("mic " + bar)
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const ringWidth = ringCharsW + 4

	var canvas string
	if m.session.Active() && len(m.dots) > 0 {
		canvas = renderRing(m.dots)
	} else {
		canvas = blankRing()
	}

	var infoLines []string
	infoLines = append(infoLines, renderStatus(m.session))
	infoLines = append(infoLines, hintStyle.Render(m.session.HintLabel()))
	if m.session.Active() {
		if m.session.Speaking() {
			infoLines = append(infoLines, speakingStyle.Render("✦ sama is speaking"))
		}
		infoLines = append(infoLines, renderMicMeter(m.micLevel, m.mic.Muted()))
		if m.micWarn {
			infoLines = append(infoLines, micWarnStyle.Render("⚠ can't hear you"))
		}
	}
	infoLines = append(infoLines, "")
	infoLines = append(infoLines,
		helpKeyStyle.Render("space")+helpStyle.Render(" call  ")+
			helpKeyStyle.Render("y")+helpStyle.Render(" copy  ")+
			helpKeyStyle.Render("m")+helpStyle.Render(" mute  ")+
			helpKeyStyle.Render("q")+helpStyle.Render(" quit"))
	infoLines = append(infoLines, helpStyle.Render("sama "+version))

	left := canvas
	for _, line := range infoLines {
		left += line + "\n"
	}
	leftLines := strings.Split(left, "\n")

	logWidth := m.width - ringWidth - 1
	if logWidth < 20 {
		logWidth = 20
	}

	leftPadded := make([]string, m.height)
	for i := range leftPadded {
		if i < len(leftLines) {
			leftPadded[i] = leftLines[i]
		}
	}

	ringPanel := lipgloss.NewStyle().
		Width(ringWidth - 1).
		Height(m.height).
		Render(strings.Join(leftPadded, "\n"))

	logPanel := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(m.viewTranscript(logWidth - 2))

	return lipgloss.JoinHorizontal(lipgloss.Top, ringPanel, logPanel)
}

func (m tuiModel) viewTranscript(wrapWidth int) string {
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	entries := m.session.Entries()
	if len(entries) == 0 {
		return placeholderStyle.Render("No conversation yet")
	}

	const tagWidth = 6
	textWidth := wrapWidth - tagWidth
	if textWidth < 10 {
		textWidth = 10
	}
	indent := strings.Repeat(" ", tagWidth)

	var lines []string
	for _, e := range entries {
		tag := "you"
		tagStyle := youTagStyle
		textStyle := youTextStyle
		if e.Role == RoleAssistant {
			tag = "sama"
			tagStyle = samaTagStyle
			textStyle = samaTextStyle
		}
		text := e.Text
		if e.Open {
			text += "…"
			textStyle = openTextStyle
		}
		prefix := tagStyle.Render(tag) + strings.Repeat(" ", tagWidth-len(tag))
		for i, line := range wrapText(text, textWidth) {
			if i == 0 {
				lines = append(lines, prefix+textStyle.Render(line))
			} else {
				lines = append(lines, indent+textStyle.Render(line))
			}
		}
		lines = append(lines, "")
	}

	if m.copied {
		lines = append(lines, copiedStyle.Render("✓ transcript copied"))
	}

	// tail-scroll: the newest lines win when the panel overflows
	if m.height > 0 && len(lines) > m.height {
		lines = lines[len(lines)-m.height:]
	}
	return strings.Join(lines, "\n")
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
