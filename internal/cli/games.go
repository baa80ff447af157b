package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dodomondo0/fool-p2p-app/internal/game"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List the games this build can host",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Game", "Title", "Players"})
		for _, name := range game.Names() {
			g, err := game.New(name, game.Params{})
			if err != nil {
				return err
			}
			info := g.Info()
			t.AppendRow(table.Row{info.Name, info.Title, fmt.Sprintf("%d-%d", info.MinPlayers, info.MaxPlayers)})
		}
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gamesCmd)
}
