package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/shundroid/three-blockly/controller"
	"github.com/shundroid/three-blockly/executor"
	"github.com/shundroid/three-blockly/host"
	"github.com/shundroid/three-blockly/locale"
	"github.com/shundroid/three-blockly/workspace"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [file.xml]",
	Short: "Open a block program in a terminal page",
	Long: `Open a block program in an interactive terminal page with the
Blocks, JavaScript and XML tabs.

Keys:
  1 2 3 / tab   switch tab
  r             run the program
  d             delete all blocks
  q             quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

var (
	colorActive = lipgloss.Color("#89b4fa")
	colorMuted  = lipgloss.Color("#7f849c")
	colorError  = lipgloss.Color("#f38ba8")
	colorText   = lipgloss.Color("#cdd6f4")

	titleStyle     = lipgloss.NewStyle().Foreground(colorActive).Bold(true)
	activeTabStyle = lipgloss.NewStyle().Foreground(colorActive).Bold(true).Underline(true).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	paneStyle      = lipgloss.NewStyle().Foreground(colorText).Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
	helpStyle      = lipgloss.NewStyle().Foreground(colorMuted)
	errStyle       = lipgloss.NewStyle().Foreground(colorError)
	modalStyle     = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(colorActive).Padding(0, 1)
)

// maxLog is how many dialogs the page keeps on screen.
const maxLog = 8

type (
	// dialogsMsg signals that the page recorded new dialogs.
	dialogsMsg struct{}

	// promptMsg asks the user for a line of text on behalf of a program.
	promptMsg struct {
		message string
		reply   chan<- promptReply
	}

	promptReply struct {
		text string
		ok   bool
	}

	runDoneMsg struct {
		id     string
		result executor.Result
	}
)

// pageEvents carries notifications from run goroutines to the model.
type pageEvents struct {
	notify  chan struct{}
	prompts chan promptMsg
}

func newPageEvents() *pageEvents {
	return &pageEvents{
		notify:  make(chan struct{}, 1),
		prompts: make(chan promptMsg),
	}
}

// newPage returns a host page that reports to ev. Prompts block until the
// model replies or ctx ends.
func (ev *pageEvents) newPage(ctx context.Context) *host.Page {
	return host.NewPage(
		host.WithDialogHook(func(host.Dialog) {
			select {
			case ev.notify <- struct{}{}:
			default:
			}
		}),
		host.WithPrompt(func(message string) (string, bool) {
			reply := make(chan promptReply, 1)
			select {
			case ev.prompts <- promptMsg{message: message, reply: reply}:
			case <-ctx.Done():
				return "", false
			}
			select {
			case r := <-reply:
				return r.text, r.ok
			case <-ctx.Done():
				return "", false
			}
		}),
	)
}

func (ev *pageEvents) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ev.notify:
			return dialogsMsg{}
		case p := <-ev.prompts:
			return p
		}
	}
}

type tuiModel struct {
	ctx    context.Context
	ctl    *controller.Controller
	ws     *workspace.Workspace
	page   *host.Page
	events *pageEvents
	msgs   locale.Messages

	log       []host.Dialog
	status    string
	statusErr bool
	running   int

	confirmDiscard int
	prompt         *promptMsg
	input          string

	width  int
	height int
}

func newTUIModel(ctx context.Context, ws *workspace.Workspace, page *host.Page, events *pageEvents, ctl *controller.Controller) tuiModel {
	return tuiModel{
		ctx:    ctx,
		ctl:    ctl,
		ws:     ws,
		page:   page,
		events: events,
		msgs:   ctl.Messages(),
	}
}

func (m tuiModel) Init() tea.Cmd {
	return m.events.listen()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ctl.Resize()
		return m, nil
	case dialogsMsg:
		m.collectDialogs()
		return m, m.events.listen()
	case promptMsg:
		m.prompt = &msg
		m.input = ""
		return m, m.events.listen()
	case runDoneMsg:
		m.running--
		m.collectDialogs()
		if msg.result.Error != nil {
			m.setError(fmt.Sprintf("run %s failed: %v", short(msg.id), msg.result.Error))
		} else {
			m.setStatus(fmt.Sprintf("run %s finished in %v", short(msg.id), msg.result.Duration.Round(time.Millisecond)))
		}
		return m, nil
	case tea.KeyMsg:
		switch {
		case m.prompt != nil:
			return m.updatePrompt(msg)
		case m.confirmDiscard > 0:
			return m.updateConfirm(msg)
		default:
			return m.updateMain(msg)
		}
	}
	return m, nil
}

func (m tuiModel) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "1":
		return m.switchTo(controller.ViewBlocks)
	case "2":
		return m.switchTo(controller.ViewGeneratedCode)
	case "3":
		return m.switchTo(controller.ViewSerializedTree)
	case "tab":
		return m.switchTo(controller.Views[(int(m.ctl.View())+1)%len(controller.Views)])
	case "shift+tab":
		n := len(controller.Views)
		return m.switchTo(controller.Views[(int(m.ctl.View())+n-1)%n])
	case "r":
		return m.run()
	case "d":
		if n := m.ws.BlockCount(); n >= 2 {
			m.confirmDiscard = n
			return m, nil
		}
		m.ctl.Discard()
		m.collectDialogs()
		m.setStatus("workspace cleared")
		return m, nil
	}
	return m, nil
}

func (m tuiModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.page.QueueConfirm(true)
	case "n", "esc":
		m.page.QueueConfirm(false)
	default:
		return m, nil
	}
	m.confirmDiscard = 0
	cleared := m.ctl.Discard()
	m.page.ClearConfirms()
	m.collectDialogs()
	if cleared {
		m.setStatus("workspace cleared")
	}
	return m, nil
}

func (m tuiModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.prompt.reply <- promptReply{text: m.input, ok: true}
		m.prompt, m.input = nil, ""
	case tea.KeyEsc:
		m.prompt.reply <- promptReply{}
		m.prompt, m.input = nil, ""
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m tuiModel) switchTo(v controller.View) (tea.Model, tea.Cmd) {
	err := m.ctl.SwitchTo(v)
	m.collectDialogs()
	if err != nil {
		m.setError(err.Error())
	} else {
		m.status = ""
	}
	return m, nil
}

func (m tuiModel) run() (tea.Model, tea.Cmd) {
	r, err := m.ctl.Run(m.ctx)
	m.collectDialogs()
	if err != nil {
		m.setError(err.Error())
		return m, nil
	}
	m.running++
	m.setStatus(fmt.Sprintf("run %s started", short(r.ID)))
	return m, func() tea.Msg {
		return runDoneMsg{id: r.ID, result: r.Wait()}
	}
}

func (m *tuiModel) collectDialogs() {
	m.log = append(m.log, m.page.DrainDialogs()...)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
}

func (m *tuiModel) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *tuiModel) setError(s string) {
	m.status, m.statusErr = s, true
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.msgs.Get(locale.MsgTitle)))
	b.WriteString("  ")
	labels := map[controller.View]string{
		controller.ViewBlocks:         m.msgs.Get(locale.MsgBlocks),
		controller.ViewGeneratedCode:  m.msgs.Get(locale.MsgJavaScript),
		controller.ViewSerializedTree: m.msgs.Get(locale.MsgXML),
	}
	current := m.ctl.View()
	for i, v := range controller.Views {
		label := fmt.Sprintf("%d %s", i+1, labels[v])
		if v == current {
			b.WriteString(activeTabStyle.Render(label))
		} else {
			b.WriteString(tabStyle.Render(label))
		}
	}
	b.WriteString("\n")

	pane := paneStyle
	if m.width > 4 {
		pane = pane.Width(m.width - 4)
	}
	b.WriteString(pane.Render(m.paneText(current)))
	b.WriteString("\n")

	for _, d := range m.log {
		line := fmt.Sprintf("[%s] %s", d.Kind, strings.ReplaceAll(d.Message, "\n", " "))
		if d.Answer != "" {
			line += " → " + d.Answer
		}
		b.WriteString(helpStyle.Render(line))
		b.WriteString("\n")
	}

	switch {
	case m.prompt != nil:
		b.WriteString(modalStyle.Render(m.prompt.message + "\n> " + m.input + "_"))
		b.WriteString("\n")
	case m.confirmDiscard > 0:
		b.WriteString(modalStyle.Render(m.msgs.Get(locale.MsgDiscard, fmt.Sprint(m.confirmDiscard)) + "  [y/n]"))
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errStyle.Render(m.status))
		} else {
			b.WriteString(helpStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("1-3/tab switch  r " + m.msgs.Get(locale.MsgRunTooltip) + "  d " + m.msgs.Get(locale.MsgTrashTooltip) + "  q quit"))
	return b.String()
}

// paneText is what the active pane shows. The terminal cannot draw blocks,
// so the Blocks pane summarizes the workspace.
func (m tuiModel) paneText(v controller.View) string {
	if v != controller.ViewBlocks {
		return strings.TrimRight(m.page.PaneText(v), "\n")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d blocks", m.ws.BlockCount())
	if vars := m.ws.Variables(); len(vars) > 0 {
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = v.Name
		}
		fmt.Fprintf(&b, "\nvariables: %s", strings.Join(names, ", "))
	}
	return b.String()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runTUI(cmd *cobra.Command, args []string) error {
	ws := workspace.New()
	if len(args) > 0 {
		source, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		if ws, err = loadWorkspace(source); err != nil {
			return err
		}
	}

	exec, err := newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := newPageEvents()
	page := events.newPage(ctx)
	ctl := newController(ws, page, exec, resolveLocale(cfg.Locale))
	if err := ctl.Start(); err != nil {
		return err
	}

	p := tea.NewProgram(newTUIModel(ctx, ws, page, events, ctl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
