package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/room"
)

// RosterTable renders the participant list with AV and turn markers.
type RosterTable struct {
	participants []*room.Participant
	turnID       string
}

func NewRosterTable(participants []*room.Participant, turnID string) *RosterTable {
	return &RosterTable{participants: participants, turnID: turnID}
}

func marker(on bool, symbol string) string {
	if on {
		return symbol
	}
	return MutedStyle.Render("·")
}

// View renders the table as a string.
func (t *RosterTable) View() string {
	if len(t.participants) == 0 {
		return MutedStyle.Render("No other players yet")
	}

	headers := []string{"Player", "Cam", "Mic", ""}

	var rows [][]string
	for _, p := range t.participants {
		name := p.DisplayName
		if p.IsHost {
			name += " ♛"
		}

		turn := ""
		if p.ID == t.turnID {
			turn = TurnStyle.Render("◀ turn")
		}

		rows = append(rows, []string{
			name,
			marker(p.CameraOn, "●"),
			marker(p.MicOn, "●"),
			turn,
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}
