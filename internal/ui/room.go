package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/room"
)

const transcriptLines = 12

var diceSides = map[int]bool{4: true, 6: true, 8: true, 10: true, 12: true, 20: true}

// RoomModel is the Bubble Tea model for the game room: transcript, roster,
// dice banner, timer, and the command input. All game state lives in the
// controller; the model only renders snapshots and forwards intent.
type RoomModel struct {
	ctrl *room.Controller

	input   textinput.Model
	spinner spinner.Model

	width    int
	notices  []string
	quitting bool
}

type updateMsg struct{}
type tickMsg time.Time

func NewRoomModel(ctrl *room.Controller) *RoomModel {
	ti := textinput.New()
	ti.Placeholder = "say something, or /roll 20, /camera, /mic, /timer start, /turn, /leave"
	ti.CharLimit = 500
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Globe
	s.Style = SpinnerStyle

	return &RoomModel{
		ctrl:    ctrl,
		input:   ti,
		spinner: s,
		width:   80,
	}
}

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate(), tickCmd(), textinput.Blink)
}

// waitForUpdate re-renders whenever the controller reports changed state.
func (m *RoomModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.ctrl.Updates()
		return updateMsg{}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 4
		return m, nil

	case updateMsg:
		m.notices = append(m.notices, m.ctrl.Notices()...)
		return m, m.waitForUpdate()

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, m.leave()
		case tea.KeyEnter:
			cmd := m.submit()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *RoomModel) leave() tea.Cmd {
	m.quitting = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.ctrl.Leave(ctx)
		return tea.Quit()
	}
}

// submit interprets the input line: slash commands drive the room actions,
// anything else is chat.
func (m *RoomModel) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if text == "" {
		return nil
	}

	if !strings.HasPrefix(text, "/") {
		m.ctrl.SendChat(text)
		return nil
	}

	fields := strings.Fields(text)
	switch fields[0] {

	case "/roll":
		sides := 20
		if len(fields) > 1 {
			n, err := strconv.Atoi(strings.TrimPrefix(fields[1], "d"))
			if err != nil || !diceSides[n] {
				m.notices = append(m.notices, "usage: /roll [4|6|8|10|12|20]")
				return nil
			}
			sides = n
		}
		if _, err := m.ctrl.RollDice(sides); err != nil {
			m.notices = append(m.notices, err.Error())
		}

	case "/camera":
		m.ctrl.ToggleCamera()

	case "/mic":
		m.ctrl.ToggleMic()

	case "/timer":
		arg := "start"
		if len(fields) > 1 {
			arg = fields[1]
		}
		switch arg {
		case "start":
			m.ctrl.StartTimer()
		case "pause":
			m.ctrl.PauseTimer()
		case "reset":
			m.ctrl.ResetTimer()
		default:
			m.notices = append(m.notices, "usage: /timer [start|pause|reset]")
		}

	case "/turn":
		m.ctrl.EndTurn()

	case "/leave", "/quit":
		return m.leave()

	default:
		m.notices = append(m.notices, "unknown command: "+fields[0])
	}

	return nil
}

func (m *RoomModel) View() string {
	if m.quitting {
		return MutedStyle.Render("Leaving the room...") + "\n"
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.ctrl.Status() == room.StatusDisconnected {
		b.WriteString(BannerStyle.Render(ErrorStyle.Render("Disconnected from server")))
		b.WriteString("\n")
	}

	turnID, _ := m.ctrl.Turn()
	roster := NewRosterTable(m.ctrl.Roster(), turnID)

	left := m.renderTranscript()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", roster.View()))
	b.WriteString("\n")

	if roll := m.ctrl.CurrentRoll(); roll != nil {
		b.WriteString(DiceBoxStyle.Render(fmt.Sprintf("%s rolled d%d → %d", roll.RollerName, roll.Sides, roll.Result)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")

	for _, n := range m.notices {
		b.WriteString(WarningStyle.Render("! "+n) + "\n")
	}

	b.WriteString(InputStyle.Render(m.input.View()))
	b.WriteString("\n")

	return b.String()
}

func (m *RoomModel) renderHeader() string {
	title := "Room " + m.ctrl.RoomID()
	if meta := m.ctrl.Meta(); meta != nil && meta.Name != "" {
		title = meta.Name
		if meta.Format != "" {
			title += "  " + SubtitleStyle.Render(meta.Format)
		}
	}

	switch m.ctrl.Status() {
	case room.StatusConnecting:
		return TitleStyle.Render(title) + "  " + m.spinner.View() + MutedStyle.Render(" connecting to server...")
	default:
		return TitleStyle.Render(title)
	}
}

func (m *RoomModel) renderTranscript() string {
	msgs := m.ctrl.Transcript()
	if len(msgs) > transcriptLines {
		msgs = msgs[len(msgs)-transcriptLines:]
	}

	var lines []string
	for _, msg := range msgs {
		switch msg.Kind {
		case room.KindSystem:
			lines = append(lines, SystemStyle.Render("· "+msg.Content))
		case room.KindGameAction:
			lines = append(lines, WarningStyle.Render(msg.SenderName+" "+msg.Content))
		default:
			lines = append(lines, ChatSenderStyle.Render(msg.SenderName+": ")+msg.Content)
		}
	}
	for len(lines) < transcriptLines {
		lines = append(lines, "")
	}

	w := m.width * 2 / 3
	if w < 30 {
		w = 30
	}
	return lipgloss.NewStyle().Width(w).Render(strings.Join(lines, "\n"))
}

func (m *RoomModel) renderStatusLine() string {
	timer := m.ctrl.Timer()
	state := "⏸"
	if timer.IsRunning {
		state = "▶"
	}

	cam := "off"
	if m.ctrl.CameraOn() {
		cam = "on"
	}
	mic := "off"
	if m.ctrl.MicOn() {
		mic = "on"
	}

	return MutedStyle.Render(fmt.Sprintf("%s %02d:%02d   cam %s   mic %s",
		state, timer.ElapsedSeconds/60, timer.ElapsedSeconds%60, cam, mic))
}
