package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/tavern-engine/internal/handlers"
	"github.com/jwebster45206/tavern-engine/internal/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/state"
)

type screen int

const (
	screenBartenders screen = iota
	screenPatrons
	screenInteraction
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *apiClient
	screen       screen
	chatViewport viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
	err          error
	status       string
	loading      bool

	// Selection state
	bartenders []handlers.BartenderSummary
	patrons    []string
	selected   int
	loadingSel bool

	bartender   handlers.BartenderSummary
	patronID    string
	patron      *actor.PatronSpec
	interaction *handlers.InteractionResponse

	showQuitModal bool
}

type bartendersLoadedMsg struct {
	bartenders []handlers.BartenderSummary
	err        error
}

type patronsLoadedMsg struct {
	patrons []string
	err     error
}

type interactionMsg struct {
	interaction *handlers.InteractionResponse
	err         error
}

type patronMsg struct {
	patron *actor.PatronSpec
	err    error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	bartenderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	patronStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient) ConsoleUI {
	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		api:          api,
		screen:       screenBartenders,
		chatViewport: chatVp,
		metaViewport: viewport.New(20, 20),
		loadingSel:   true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadBartenders()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
		m.resize()
		return m, nil
	}

	switch m.screen {
	case screenBartenders, screenPatrons:
		return m.updateSelection(msg)
	default:
		return m.updateInteraction(msg)
	}
}

func (m *ConsoleUI) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.ready = true
	m.refreshContent()
}

func (m ConsoleUI) updateSelection(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bartendersLoadedMsg:
		m.loadingSel = false
		m.err = msg.err
		m.bartenders = msg.bartenders
		m.selected = 0

	case patronsLoadedMsg:
		m.loadingSel = false
		m.err = msg.err
		m.patrons = msg.patrons
		m.selected = 0

	case interactionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.interaction = msg.interaction
		m.screen = screenInteraction
		m.refreshContent()
		return m, m.loadPatron()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.loadingSel || m.err != nil {
				return m, tea.Quit
			}
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
		case tea.KeyDown:
			if m.selected < m.selectionLen()-1 {
				m.selected++
			}
		case tea.KeyEnter:
			if m.loadingSel || m.loading || m.err != nil || m.selectionLen() == 0 {
				return m, nil
			}
			if m.screen == screenBartenders {
				m.bartender = m.bartenders[m.selected]
				m.screen = screenPatrons
				m.loadingSel = true
				return m, m.loadPatrons()
			}
			m.patronID = m.patrons[m.selected]
			m.loading = true
			return m, m.startInteraction()
		}
	}
	return m, nil
}

func (m ConsoleUI) selectionLen() int {
	if m.screen == screenBartenders {
		return len(m.bartenders)
	}
	return len(m.patrons)
}

func (m ConsoleUI) updateInteraction(msg tea.Msg) (tea.Model, tea.Cmd) {
	var vpCmd tea.Cmd

	switch msg := msg.(type) {
	case interactionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.interaction = msg.interaction
		}
		m.refreshContent()
		return m, m.loadPatron()

	case patronMsg:
		if msg.err == nil {
			m.patron = msg.patron
			m.refreshContent()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading || m.interaction == nil || len(m.interaction.Options) > 0 {
				return m, nil
			}
			if m.interaction.Closed {
				m.status = "The conversation is over. Press n to talk again, b to pick another bartender."
				m.refreshContent()
				return m, nil
			}
			m.loading = true
			return m, m.advance()
		}

		switch key := msg.String(); key {
		case "y":
			if err := clipboard.WriteAll(formatTranscript(m.interaction.Transcript, m.bartender.Name)); err != nil {
				m.status = "Copy failed: " + err.Error()
			} else {
				m.status = "Transcript copied to clipboard."
			}
			m.refreshContent()
			return m, nil
		case "n":
			if m.interaction != nil && m.interaction.Closed && !m.loading {
				m.loading = true
				m.status = ""
				return m, m.startInteraction()
			}
		case "b":
			if m.interaction != nil && m.interaction.Closed {
				_ = m.api.endInteraction(m.interaction.ID)
				m.interaction = nil
				m.screen = screenBartenders
				m.loadingSel = true
				m.status = ""
				return m, m.loadBartenders()
			}
		default:
			if m.loading || m.interaction == nil {
				return m, nil
			}
			if opt, ok := optionForKey(key, m.interaction.Options); ok {
				m.loading = true
				m.status = ""
				return m, m.selectOption(opt.ID)
			}
		}
	}

	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, vpCmd
}

// optionForKey maps "1".."9" onto the displayed options
func optionForKey(key string, opts []dialogue.Option) (dialogue.Option, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return dialogue.Option{}, false
	}
	i := int(key[0] - '1')
	if i >= len(opts) {
		return dialogue.Option{}, false
	}
	return opts[i], true
}

// formatTranscript renders a transcript as plain text for the clipboard
func formatTranscript(entries []state.TranscriptEntry, bartenderName string) string {
	if bartenderName == "" {
		bartenderName = "Bartender"
	}
	var b strings.Builder
	for _, e := range entries {
		speaker := bartenderName
		if e.Speaker == state.SpeakerPatron {
			speaker = "You"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, e.Text)
	}
	return b.String()
}

func (m *ConsoleUI) refreshContent() {
	if !m.ready || m.interaction == nil {
		return
	}
	width := m.chatViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.bartender.Name)) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	name := m.bartender.Name + ": "
	for _, e := range m.interaction.Transcript {
		if e.Speaker == state.SpeakerPatron {
			content.WriteString(patronStyle.Render("You: ") + wordwrap.String(e.Text, width-5) + "\n\n")
			continue
		}
		content.WriteString(bartenderStyle.Render(name) + wordwrap.String(e.Text, width-len(name)) + "\n\n")
	}

	if len(m.interaction.Options) > 0 {
		for i, o := range m.interaction.Options {
			content.WriteString(optionStyle.Render(fmt.Sprintf("%d. ", i+1)) + wordwrap.String(o.Label, width-3) + "\n")
		}
		content.WriteString("\n")
	} else if !m.interaction.Closed {
		content.WriteString(promptStyle.Render("Press Enter to continue") + "\n")
	} else {
		content.WriteString(promptStyle.Render("(conversation closed)") + "\n")
	}

	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.status != "" {
		content.WriteString("\n" + promptStyle.Render(m.status) + "\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(writeMetadata(m.interaction, m.patron))
}

func writeMetadata(it *handlers.InteractionResponse, p *actor.PatronSpec) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("PATRON") + "\n\n")
	if p != nil {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		content.WriteString(name + "\n")
		content.WriteString(fmt.Sprintf("HP: %d/%d\n", p.HP, p.MaxHP))
		content.WriteString(fmt.Sprintf("Gold: %d\n", p.Gold))
		if len(p.Inventory) > 0 {
			content.WriteString("Items:\n")
			for _, item := range p.Inventory {
				content.WriteString("• " + item + "\n")
			}
		}
	}

	content.WriteString("\n" + titleStyle.Render("INTERACTION") + "\n\n")
	content.WriteString("Phase: " + it.Phase.String() + "\n")
	content.WriteString(fmt.Sprintf("Heal used: %t\n", it.HealUsed))
	content.WriteString(fmt.Sprintf("Second used: %t\n", it.SecondUsed))
	if it.Completed {
		content.WriteString("Transaction complete\n")
	}
	if it.Blocked {
		content.WriteString("Already served\n")
	}

	content.WriteString("\nKeys:\n")
	content.WriteString("• Enter: Continue\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• y: Copy transcript\n")
	content.WriteString("• Esc: Quit\n")
	return content.String()
}

func (m ConsoleUI) loadBartenders() tea.Cmd {
	return func() tea.Msg {
		bs, err := m.api.listBartenders()
		return bartendersLoadedMsg{bs, err}
	}
}

func (m ConsoleUI) loadPatrons() tea.Cmd {
	return func() tea.Msg {
		ps, err := m.api.listPatrons()
		return patronsLoadedMsg{ps, err}
	}
}

func (m ConsoleUI) loadPatron() tea.Cmd {
	id := m.patronID
	return func() tea.Msg {
		p, err := m.api.getPatron(id)
		return patronMsg{p, err}
	}
}

func (m ConsoleUI) startInteraction() tea.Cmd {
	req := tavern.StartRequest{
		BartenderID: m.bartender.ID,
		PatronID:    m.patronID,
		Language:    m.config.Language,
	}
	return func() tea.Msg {
		it, err := m.api.startInteraction(req)
		return interactionMsg{it, err}
	}
}

func (m ConsoleUI) advance() tea.Cmd {
	id := m.interaction.ID
	return func() tea.Msg {
		it, err := m.api.advance(id)
		return interactionMsg{it, err}
	}
}

func (m ConsoleUI) selectOption(option dialogue.OptionID) tea.Cmd {
	id := m.interaction.ID
	return func() tea.Msg {
		it, err := m.api.selectOption(id, option)
		return interactionMsg{it, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Tavern?"))
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to stay, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSelectionModal() string {
	var content strings.Builder

	title, items := "Select a Bartender", make([]string, 0, len(m.bartenders))
	for _, b := range m.bartenders {
		label := b.Name
		if label == "" {
			label = b.ID
		}
		items = append(items, label)
	}
	if m.screen == screenPatrons {
		title, items = "Who is ordering?", m.patrons
	}

	switch {
	case m.loadingSel:
		content.WriteString(modalTitleStyle.Render("Loading..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(m.err.Error()))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Walking up to the bar..."))
	default:
		content.WriteString(modalTitleStyle.Render(title))
		content.WriteString("\n\n")
		for i, item := range items {
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + item))
			} else {
				content.WriteString(modalItemStyle.Render("  " + item))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.screen != screenInteraction {
		return m.renderSelectionModal()
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(m.chatViewport.View())
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(m.metaViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
