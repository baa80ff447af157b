package ui

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dodomondo0/fool-p2p-app/internal/game"
)

// RosterView renders the player roster as a table. The first entry is the
// room's host.
func RosterView(players []string) string {
	if len(players) == 0 {
		return MutedStyle.Render("No players yet")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Player"})
	for i, name := range players {
		label := name
		if i == 0 {
			label = name + " (host)"
		}
		t.AppendRow(table.Row{i + 1, label})
	}
	return t.Render()
}

// RenderRoster outputs the roster table directly to stdout.
func RenderRoster(players []string) {
	fmt.Println(RosterView(players))
}

// HandView renders one player's dealt hand with the trump card shown below.
func HandView(hand []game.Card, trump game.Card) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Your hand"})

	cards := make([]string, len(hand))
	for i, c := range hand {
		cards[i] = styleCard(c)
	}
	t.AppendRow(table.Row{strings.Join(cards, "  ")})
	t.AppendFooter(table.Row{"Trump: " + styleCard(trump)})
	return t.Render()
}

func styleCard(c game.Card) string {
	switch c.Suit {
	case "♥", "♦":
		return RedCardStyle.Render(c.String())
	default:
		return c.String()
	}
}

// RoomInfo is the banner shown once a room has been created.
type RoomInfo struct {
	Room    string
	Players int
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room:     %s\n%s Players:  %d",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(r.Room),
		IconPeer, r.Players,
	)
	return SuccessBoxStyle.Render(content)
}
