// Package console is the terminal front end: a bubbletea chat view and a
// plain line-mode fallback, both driven by a chat session.
package console

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
)

// Conversation is the session surface the console drives.
type Conversation interface {
	Snapshot() chat.Snapshot
	Submit(ctx context.Context, text string) (<-chan chat.Turn, bool)
	SubmitPreset(ctx context.Context, issue preset.Issue) (<-chan chat.Turn, bool)
	Reset()
	SetDraft(text string)
	Subscribe(ctx context.Context) <-chan chat.Event
}

// Config wires runtime dependencies into the TUI.
type Config struct {
	Conversation Conversation
	Presets      preset.Store
}

const (
	inputPlaceholder   = "Describe your WordPress issue (e.g. 'I see a 500 error after installing Jetpack')"
	minViewportWidth   = 40
	reservedRows       = 7
	viewportHorizontal = 2
)

type model struct {
	ctx    context.Context
	config Config
	events <-chan chat.Event

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	snap chat.Snapshot

	picking bool
	cursor  int
	closed  bool
}

type eventMsg chat.Event

type subscriptionClosedMsg struct{}

// New returns a tea.Model subscribed to the conversation until ctx is done.
func New(ctx context.Context, config Config) tea.Model {
	return newModel(ctx, config)
}

func newModel(ctx context.Context, config Config) *model {
	input := textinput.New()
	input.Placeholder = inputPlaceholder
	input.CharLimit = 2000
	input.Width = 70
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		ctx:      ctx,
		config:   config,
		events:   config.Conversation.Subscribe(ctx),
		input:    input,
		spinner:  spin,
		viewport: vp,
		snap:     config.Conversation.Snapshot(),
	}
	m.input.SetValue(m.snap.Draft)
	m.refreshViewport()
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return subscriptionClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case eventMsg:
		m.snap = msg.Snapshot
		m.refreshViewport()
		return m, waitForEvent(m.events)
	case subscriptionClosedMsg:
		m.closed = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picking {
		return m.handlePickerKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyCtrlP:
		m.picking = true
		m.cursor = 0
		return m, nil
	case tea.KeyCtrlR:
		m.config.Conversation.Reset()
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyEnter:
		m.submit(m.input.Value())
		return m, nil
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		m.config.Conversation.SetDraft(value)
	}
	return m, cmd
}

func (m *model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	issues := m.config.Presets.List()

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyCtrlP:
		m.picking = false
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(issues)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		m.picking = false
		if m.cursor < len(issues) && !m.snap.Pending {
			m.config.Conversation.SubmitPreset(m.ctx, issues[m.cursor])
		}
	}
	return m, nil
}

// submit mirrors the web form: blank input or an outstanding request leaves
// the input untouched.
func (m *model) submit(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if _, ok := m.config.Conversation.Submit(m.ctx, text); ok {
		m.input.Reset()
	}
}

func (m *model) resize(width, height int) {
	vpWidth := width - viewportHorizontal
	if vpWidth < minViewportWidth {
		vpWidth = minViewportWidth
	}
	vpHeight := height - reservedRows
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.input.Width = vpWidth - 4
	m.refreshViewport()
}

func (m *model) refreshViewport() {
	m.viewport.SetContent(renderTranscript(m.snap, m.viewport.Width))
	m.viewport.GotoBottom()
}
