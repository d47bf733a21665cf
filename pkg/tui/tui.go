// Package tui provides a terminal user interface for inspecting MIDI files as scores
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/scorestream/pkg/converter"
)

// Manuscript colour scheme
var (
	inkBlue   = lipgloss.Color("#3B82F6")
	paper     = lipgloss.Color("#F5F0E1")
	staffGray = lipgloss.Color("#A0A0A0")
	darkGray  = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(paper).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(staffGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(inkBlue).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(paper).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(inkBlue).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(inkBlue).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateWorking
	StateResult
)

// Action is what a menu item does with the chosen file
type Action int

const (
	ActionInspect Action = iota
	ActionMeasures
	ActionNormalize
	ActionExportText
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
}

var menuItems = []MenuItem{
	{Title: "Inspect score", Description: "Parts, meters, clefs and pitch range of a MIDI file", Action: ActionInspect},
	{Title: "Show measures", Description: "Split into measures and list every element", Action: ActionMeasures},
	{Title: "MIDI → MIDI", Description: "Quantise and rewrite a MIDI file, joining tied notes", Action: ActionNormalize},
	{Title: "MIDI → TXT", Description: "Write the score's element dump next to the file", Action: ActionExportText},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// Model represents the TUI model
type Model struct {
	conv         *converter.Converter
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	report       string
	item         MenuItem
	err          error
	width        int
	height       int
}

// workDoneMsg signals that the chosen action finished
type workDoneMsg struct {
	outputFile string
	report     string
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(conv *converter.Converter) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(inkBlue)

	return Model{
		conv:       conv,
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateWorking
			return m, tea.Batch(m.spinner.Tick, m.perform())
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case workDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.report = msg.report
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		m.item = menuItems[m.menuIndex]
		if m.item.Action == ActionExit {
			return m, tea.Quit
		}
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.report = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) perform() tea.Cmd {
	conv, item, file := m.conv, m.item, m.selectedFile
	return func() tea.Msg {
		return run(conv, item.Action, file)
	}
}

// run carries out one menu action on a file
func run(conv *converter.Converter, action Action, file string) workDoneMsg {
	base := strings.TrimSuffix(file, filepath.Ext(file))
	switch action {
	case ActionNormalize, ActionExportText:
		out := base + ".normalized.mid"
		if action == ActionExportText {
			out = base + ".txt"
		}
		res, err := conv.ConvertFile(file, out)
		if err != nil {
			return workDoneMsg{err: err}
		}
		return workDoneMsg{outputFile: res.Filename}
	}

	score, err := conv.ParseMIDIFile(file)
	if err != nil {
		return workDoneMsg{err: err}
	}
	if action == ActionMeasures {
		measured, err := score.MakeNotation(nil)
		if err != nil {
			return workDoneMsg{err: err}
		}
		return workDoneMsg{report: measured.Text()}
	}
	return workDoneMsg{report: formatSummary(converter.Summarize(score))}
}

func formatSummary(sum converter.Summary) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Length: %v quarters\n", sum.Length)
	fmt.Fprintf(&s, "Meters: %s\n", strings.Join(sum.TimeSignatures, ", "))
	if sum.Overlaps > 0 {
		fmt.Fprintf(&s, "Overlapping note clusters: %d\n", sum.Overlaps)
	}
	for i, p := range sum.Parts {
		name := p.ID
		if name == "" {
			name = fmt.Sprintf("Part %d", i+1)
		}
		fmt.Fprintf(&s, "\n%s\n", name)
		fmt.Fprintf(&s, "  notes %d, rests %d, %s clef\n", p.Notes, p.Rests, p.Clef)
		if p.Pitches.Count > 0 {
			fmt.Fprintf(&s, "  range %s-%s, mean MIDI %.1f\n", p.Pitches.Lowest, p.Pitches.Highest, p.Pitches.Mean)
		}
	}
	return s.String()
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(logo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateWorking:
		s.WriteString(m.viewWorking())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(paper).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewWorking() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Reading %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  " + m.item.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", m.item.Title, m.err.Error())))
	case m.outputFile != "":
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s", filepath.Base(m.outputFile)))
	default:
		s.WriteString(titleStyle.Render(" " + strings.ToUpper(filepath.Base(m.selectedFile)) + " "))
		s.WriteString("\n\n")
		s.WriteString(m.report)
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func logo() string {
	art := `
  ___  ___ ___  _ __ ___  ___| |_ _ __ ___  __ _ _ __ ___
 / __|/ __/ _ \| '__/ _ \/ __| __| '__/ _ \/ _' | '_ ' _ \
 \__ \ (_| (_) | | |  __/\__ \ |_| | |  __/ (_| | | | | | |
 |___/\___\___/|_|  \___||___/\__|_|  \___|\__,_|_| |_| |_|
`
	return lipgloss.NewStyle().Foreground(inkBlue).Render(art)
}

// Run starts the TUI application
func Run(conv *converter.Converter) error {
	p := tea.NewProgram(New(conv), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
