package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/waychat/internal/history"
	"github.com/diogo/waychat/internal/panel"
	"github.com/diogo/waychat/internal/render"
)

const (
	maxPanelWidth  = 72
	minPanelWidth  = 36
	maxPanelHeight = 26
	minPanelHeight = 10
)

// replyMsg carries a finished completion back to Update
type replyMsg struct {
	req   *panel.Request
	reply string
	err   error
}

// rect is a screen region in cells, half-open on the right and bottom
type rect struct {
	x0, y0, x1, y1 int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x0 && x < r.x1 && y >= r.y0 && y < r.y1
}

// Model is the bubbletea model for the chat panel. It drives a
// panel.Controller and pulls a fresh View after every change.
type Model struct {
	ctrl      *panel.Controller
	ctx       context.Context
	modelName string
	mdOpts    render.Options
	autoCopy  bool

	// UI components
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// State
	view     panel.View
	ready    bool
	feedback string
	rendered map[int]string // assistant entry id -> glamour output

	// Dimensions
	width  int
	height int

	copyFn    func(string) error
	exportDir string
	now       func() time.Time
}

// Option configures a Model
type Option func(*Model)

// WithContext sets the context used for completion calls
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// WithModelName sets the model name shown in the panel header
func WithModelName(name string) Option {
	return func(m *Model) { m.modelName = name }
}

// WithMarkdown sets the options used to render assistant replies
func WithMarkdown(opts render.Options) Option {
	return func(m *Model) { m.mdOpts = opts }
}

// WithAutoCopy copies every reply to the clipboard as it lands
func WithAutoCopy(enabled bool) Option {
	return func(m *Model) { m.autoCopy = enabled }
}

// WithClipboard replaces the clipboard writer
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copyFn = fn }
}

// WithExportDir sets where /export writes files
func WithExportDir(dir string) Option {
	return func(m *Model) { m.exportDir = dir }
}

// NewModel creates the TUI model over ctrl
func NewModel(ctrl *panel.Controller, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4000
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorText)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(colorTextMute)

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		ctrl:      ctrl,
		ctx:       context.Background(),
		mdOpts:    render.DefaultOptions(),
		input:     ti,
		spinner:   s,
		rendered:  make(map[int]string),
		copyFn:    clipboard.WriteAll,
		exportDir: ".",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.view = ctrl.Render()
	if m.view.Open {
		m.input.Focus()
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+o":
			m.ctrl.Toggle()
			cmd = m.syncOpen()
			return m, cmd

		case "esc":
			if !m.view.Open {
				return m, tea.Quit
			}
			m.ctrl.Toggle()
			cmd = m.syncOpen()
			return m, cmd

		case "enter":
			if m.view.Open {
				return m.submit()
			}
			return m, nil

		case "up", "down", "pgup", "pgdown":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		if m.view.Open {
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			cmd = m.click(msg.X, msg.Y)
			return m, cmd
		}

	case replyMsg:
		outcome := m.ctrl.Resolve(msg.req, msg.reply, msg.err)
		if outcome == panel.OutcomeReplied && m.autoCopy {
			if err := m.copyFn(msg.reply); err != nil {
				m.feedback = "copy failed: " + err.Error()
			}
		}
		m.refresh()

	case spinner.TickMsg:
		if m.view.Pending {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
			m.updateViewport()
		}

	default:
		if m.view.Open {
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// click routes a left click at (x, y) to the controller
func (m *Model) click(x, y int) tea.Cmd {
	if !m.ready {
		return nil
	}

	switch {
	case m.launcherRect().contains(x, y):
		m.ctrl.Toggle()
	case m.view.Open && m.panelRect().contains(x, y):
		m.ctrl.Click(panel.TargetPanel)
	default:
		m.ctrl.Click(panel.TargetOutside)
	}
	return m.syncOpen()
}

// syncOpen pulls the View after an open/close change and moves focus
func (m *Model) syncOpen() tea.Cmd {
	m.refresh()
	if m.view.Open {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	// "//" sends the rest, leading slash included, as a message
	if strings.HasPrefix(text, "//") {
		text = text[1:]
	} else if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}

	m.input.Reset()
	m.feedback = ""
	req, ok := m.ctrl.BeginText(text)
	m.refresh()
	if !ok {
		m.feedback = "no completion client configured"
		return m, nil
	}

	return m, tea.Batch(m.complete(req), m.spinner.Tick)
}

// complete runs the completion call off the update loop
func (m Model) complete(req *panel.Request) tea.Cmd {
	ctx := m.ctx
	ctrl := m.ctrl
	return func() tea.Msg {
		reply, err := ctrl.Complete(ctx, req)
		return replyMsg{req: req, reply: reply, err: err}
	}
}

func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/copy":
		reply := m.ctrl.LastReply()
		if reply == "" {
			m.feedback = "nothing to copy yet"
			break
		}
		if err := m.copyFn(reply); err != nil {
			m.feedback = "copy failed: " + err.Error()
			break
		}
		m.feedback = "last reply copied to clipboard"

	case "/export":
		name := ""
		if len(fields) > 1 {
			name = fields[1]
		}
		path, err := m.export(name)
		if err != nil {
			m.feedback = "export failed: " + err.Error()
			break
		}
		m.feedback = "exported to " + path

	case "/help":
		m.feedback = "/copy  /export [markdown|json]  /quit  (start with // to send a leading /)"

	default:
		m.feedback = fmt.Sprintf("unknown command %s (try /help)", fields[0])
	}

	return m, nil
}

// export writes the session transcript under exportDir and returns the path
func (m Model) export(formatName string) (string, error) {
	format, err := history.ParseFormat(formatName)
	if err != nil {
		return "", err
	}

	opts := history.DefaultExportOptions()
	opts.Format = format
	opts.Model = m.modelName
	opts.ExportedAt = m.now()

	data, err := history.Export(m.ctrl.Transcript(), opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(m.exportDir, "waychat-"+opts.ExportedAt.Format("20060102-150405")+format.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// refresh pulls the controller View into the model
func (m *Model) refresh() {
	m.view = m.ctrl.Render()
	m.updateViewport()
	if m.view.ScrollToEnd {
		m.viewport.GotoBottom()
	}
}

// Panel geometry. The panel sits bottom-right, directly above the launcher
// line, which is always the last screen row.

func (m Model) panelOuterWidth() int {
	w := m.width
	if w > maxPanelWidth {
		w = maxPanelWidth
	}
	if w < minPanelWidth && m.width >= minPanelWidth {
		w = minPanelWidth
	}
	return w
}

func (m Model) panelOuterHeight() int {
	h := m.height - 1
	if h > maxPanelHeight {
		h = maxPanelHeight
	}
	if h < minPanelHeight {
		h = minPanelHeight
	}
	return h
}

func (m Model) panelRect() rect {
	w, h := m.panelOuterWidth(), m.panelOuterHeight()
	bottom := m.height - 1
	return rect{x0: m.width - w, y0: bottom - h, x1: m.width, y1: bottom}
}

func (m Model) launcherRect() rect {
	w := lipgloss.Width(m.renderLauncher())
	return rect{x0: m.width - w, y0: m.height - 1, x1: m.width, y1: m.height}
}

func (m *Model) resize() {
	// Border and padding take four columns; header, feedback and the
	// bordered input take five rows.
	innerWidth := m.panelOuterWidth() - 4
	vpHeight := m.panelOuterHeight() - 2 - 5
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(innerWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = innerWidth
		m.viewport.Height = vpHeight
	}

	m.input.Width = innerWidth - 4 - lipgloss.Width(m.input.Prompt) - 1
	if m.input.Width < 1 {
		m.input.Width = 1
	}

	// Rendered replies depend on the width
	m.rendered = make(map[int]string)
}

// updateViewport refreshes the viewport content from the current View
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}

	if len(m.view.Entries) == 0 {
		content.WriteString(hintStyle.Render("Ask WayChat about Way Foundation, schemas or plugins."))
	}

	for i, entry := range m.view.Entries {
		if i > 0 {
			content.WriteString("\n")
		}

		switch entry.Kind {
		case panel.EntryUser:
			content.WriteString(userLabelStyle.Render("You") + "\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(entry.Text))

		case panel.EntryAssistant:
			rendered, ok := m.rendered[entry.ID]
			if !ok {
				rendered = render.Reply(entry.Text, m.mdOpts.WithWidth(bubbleWidth-4))
				m.rendered[entry.ID] = rendered
			}
			content.WriteString(assistantLabelStyle.Render("WayChat") + "\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))

		case panel.EntryPending:
			content.WriteString(assistantLabelStyle.Render("WayChat") + "\n")
			content.WriteString(m.spinner.View() + loadingStyle.Render(" thinking"))

		case panel.EntryError:
			content.WriteString(errorStyle.Render("⚠ " + entry.Text))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var upper string
	if m.view.Open {
		upper = lipgloss.Place(m.width, m.height-1, lipgloss.Right, lipgloss.Bottom, m.renderPanel())
	} else {
		upper = lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center,
			hintStyle.Render("Press ctrl+o or click Chat to talk to WayChat"))
	}

	return upper + "\n" + m.renderBottomBar()
}

func (m Model) renderPanel() string {
	innerWidth := m.panelOuterWidth() - 4

	header := titleStyle.Render("WayChat")
	if m.modelName != "" {
		header += subtitleStyle.Render("  •  " + m.modelName)
	}

	feedback := ""
	if m.feedback != "" {
		feedback = feedbackStyle.Render(truncate(m.feedback, innerWidth))
	}

	input := inputStyle.Width(innerWidth - 2).Render(m.input.View())

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		feedback,
		input,
	)

	return panelStyle.
		Width(m.panelOuterWidth() - 2).
		Height(m.panelOuterHeight() - 2).
		Render(body)
}

func (m Model) renderLauncher() string {
	if m.view.Open {
		return launcherOpenStyle.Render("Close ▾")
	}
	return launcherStyle.Render("Chat ▴")
}

func (m Model) renderBottomBar() string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"ctrl+o", "Chat"},
		{"Enter", "Send"},
		{"Esc", "Close"},
		{"ctrl+c", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	status := strings.Join(items, statusDescStyle.Render("  │  "))

	launcher := m.renderLauncher()
	gap := m.width - lipgloss.Width(status) - lipgloss.Width(launcher)
	if gap < 1 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, launcher)
	}
	return status + strings.Repeat(" ", gap) + launcher
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// RunChat starts the chat TUI over ctrl and blocks until the user quits
func RunChat(ctx context.Context, ctrl *panel.Controller, opts ...Option) error {
	opts = append([]Option{WithContext(ctx)}, opts...)
	m := NewModel(ctrl, opts...)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
