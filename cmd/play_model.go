package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/peer-chess/internal/adapters/render/board"
	"github.com/bnema/peer-chess/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

type boardChangedMsg struct {
	fen string
}

type playingChangedMsg struct {
	playing bool
}

type contactsChangedMsg struct {
	contacts []domain.Contact
}

type commandResultMsg struct {
	status   string
	err      error
	lastMove *domain.Move
}

type sessionEndedMsg struct {
	err error
}

type playStyles struct {
	title   lipgloss.Style
	status  lipgloss.Style
	err     lipgloss.Style
	contact lipgloss.Style
	help    lipgloss.Style
}

func newPlayStyles() playStyles {
	return playStyles{
		title:   lipgloss.NewStyle().Bold(true),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		contact: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		help:    lipgloss.NewStyle().Faint(true),
	}
}

type playModel struct {
	ctx      context.Context
	sides    []*playSide
	target   domain.Identity
	input    textinput.Model
	spinner  spinner.Model
	styles   playStyles
	fen      string
	playing  bool
	contacts []domain.Contact
	status   string
	err      error
	fatal    error
	flip     bool
	lastMove *domain.Move
}

func newPlayModel(ctx context.Context, sides []*playSide, target domain.Identity) playModel {
	input := textinput.New()
	input.Placeholder = "e2e4, /challenge <identity>, /reset, /flip, /quit"
	input.Prompt = "> "
	input.CharLimit = 96
	input.Focus()

	return playModel{
		ctx:    ctx,
		sides:  sides,
		target: target,
		input:  input,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		styles: newPlayStyles(),
	}
}

func (m playModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.target != "" {
		cmds = append(cmds, m.challenge(m.target))
	}
	return tea.Batch(cmds...)
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			return m.handleInput(text)
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case boardChangedMsg:
		m.fen = msg.fen
		return m, nil
	case playingChangedMsg:
		m.playing = msg.playing
		if msg.playing {
			return m, m.refresh()
		}
		m.fen = ""
		m.lastMove = nil
		m.status = "Game over."
		return m, nil
	case contactsChangedMsg:
		m.contacts = msg.contacts
		return m, nil
	case commandResultMsg:
		m.status, m.err = msg.status, msg.err
		if msg.lastMove != nil {
			m.lastMove = msg.lastMove
		}
		return m, nil
	case sessionEndedMsg:
		m.fatal = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m playModel) handleInput(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return m, nil
	}
	m.err = nil

	switch fields[0] {
	case "/quit":
		return m, tea.Quit
	case "/flip":
		m.flip = !m.flip
		return m, nil
	case "/reset":
		return m, m.reset()
	case "/challenge", "/play":
		if len(fields) != 2 {
			m.err = fmt.Errorf("usage: %s <identity>", fields[0])
			return m, nil
		}
		return m, m.challenge(domain.Identity(fields[1]))
	}

	move, err := domain.ParseMove(fields[0])
	if err != nil {
		m.err = err
		return m, nil
	}
	if !m.playing {
		m.err = domain.ErrNotPlaying
		return m, nil
	}

	return m, m.submit(move)
}

// mover picks the side whose turn it is. A single remote game always moves
// through the only side.
func (m playModel) mover() *playSide {
	if len(m.sides) == 1 {
		return m.sides[0]
	}

	fields := strings.Fields(m.fen)
	if len(fields) > 1 && fields[1] == "b" {
		return m.sides[1]
	}
	return m.sides[0]
}

func (m playModel) challenge(identity domain.Identity) tea.Cmd {
	side, ctx := m.sides[0], m.ctx
	return func() tea.Msg {
		if err := side.dispatcher.InitiateGame(ctx, identity); err != nil {
			return commandResultMsg{err: err}
		}
		return commandResultMsg{status: fmt.Sprintf("Challenging %s...", identity)}
	}
}

func (m playModel) submit(move domain.Move) tea.Cmd {
	side, ctx := m.mover(), m.ctx
	return func() tea.Msg {
		accepted, err := side.dispatcher.SubmitMove(ctx, move)
		switch {
		case err != nil:
			return commandResultMsg{err: err}
		case !accepted:
			return commandResultMsg{err: fmt.Errorf("%w: %s", domain.ErrIllegalMove, move)}
		default:
			return commandResultMsg{status: fmt.Sprintf("%s played %s", side.name, move), lastMove: &move}
		}
	}
}

// refresh reads the starting position, which is not announced as a board
// change.
func (m playModel) refresh() tea.Cmd {
	side, ctx := m.sides[0], m.ctx
	return func() tea.Msg {
		snapshot, err := side.dispatcher.Snapshot(ctx)
		if err != nil {
			return commandResultMsg{err: err}
		}
		return boardChangedMsg{fen: snapshot.Board}
	}
}

func (m playModel) reset() tea.Cmd {
	side, ctx := m.sides[0], m.ctx
	return func() tea.Msg {
		if err := side.dispatcher.Reset(ctx); err != nil {
			return commandResultMsg{err: err}
		}
		return commandResultMsg{status: "Game reset."}
	}
}

func (m playModel) View() string {
	names := lo.Map(m.sides, func(side *playSide, _ int) string { return side.name })
	lines := []string{m.styles.title.Render("pchess: " + strings.Join(names, " / "))}

	if m.playing && m.fen != "" {
		rendered, err := board.View(m.fen, board.RenderOptions{Flip: m.flip, LastMove: m.lastMove})
		if err != nil {
			rendered = m.styles.err.Render(err.Error())
		}
		lines = append(lines, "", rendered)
	} else {
		lines = append(lines, "", fmt.Sprintf("%s Waiting for a game", m.spinner.View()))
		lines = append(lines, m.contactLines()...)
	}

	lines = append(lines, "")
	if m.err != nil {
		lines = append(lines, m.styles.err.Render(m.err.Error()))
	} else if m.status != "" {
		lines = append(lines, m.styles.status.Render(m.status))
	}
	lines = append(lines, m.input.View(), m.styles.help.Render("esc to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m playModel) contactLines() []string {
	if len(m.contacts) == 0 {
		return []string{m.styles.help.Render("No players available.")}
	}

	lines := []string{m.styles.help.Render("Available players:")}
	for _, contact := range m.contacts {
		lines = append(lines, "  "+m.styles.contact.Render(contact.Name)+" "+m.styles.help.Render(string(contact.Identity)))
	}
	return lines
}
