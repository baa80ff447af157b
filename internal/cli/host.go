package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dodomondo0/fool-p2p-app/internal/config"
	"github.com/dodomondo0/fool-p2p-app/internal/game"
	"github.com/dodomondo0/fool-p2p-app/internal/lobby"
	"github.com/dodomondo0/fool-p2p-app/internal/signaling"
	"github.com/dodomondo0/fool-p2p-app/internal/ui"
)

var (
	flagHostDomain   string
	flagHostSTUN     string
	flagHostTURN     string
	flagHostTURNUser string
	flagHostTURNPass string
	flagHostName     string
	flagHostPassword string
	flagHostMode     string
	flagHostDeck     int
)

var hostCmd = &cobra.Command{
	Use:     "host <room>",
	Aliases: []string{"h"},
	Short:   "Create a room and host a game",
	Long: `Create a room on the rendezvous server and host a game. Each joining
player gets a direct WebRTC connection to you; the server only brokers the
introduction.

Examples:
  fool host kitchen-table
  fool host kitchen-table --password secret
  fool host kitchen-table --deck 52 --mode perevodnoy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost(args[0])
	},
}

func runHost(room string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagHostDomain,
		STUNServer: flagHostSTUN,
		TURNServer: flagHostTURN,
		TURNUser:   flagHostTURNUser,
		TURNPass:   flagHostTURNPass,
		PlayerName: flagHostName,
	})
	if err != nil {
		return err
	}

	events := make(chan func(), eventBuffer)
	h := lobby.NewHost(cfg, room, flagHostPassword, func(f func()) { events <- f })
	defer h.Close()

	fmt.Println()
	sp := ui.NewConnectionSpinner("Creating room...")
	sp.Start()
	defer sp.Stop()

	fatal := make(chan error, 1)
	h.OnJoined(func(res signaling.JoinResult) {
		if !res.Success {
			sp.Stop()
			select {
			case fatal <- errors.New(res.Message):
			default:
			}
			return
		}
		sp.Success(fmt.Sprintf("Room %s is up", res.Room))
		info := ui.RoomInfo{Room: res.Room, Players: len(h.Roster())}
		fmt.Println(info.View())
		ui.PrintInfo("Type a message to chat, \"start\" to deal, \"quit\" to leave.")
	})
	h.OnRosterChange(ui.RenderRoster)
	h.OnChat(ui.PrintChat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- h.Run(ctx) }()

	lines := readLines()
	for {
		select {
		case f := <-events:
			f()
		case err := <-fatal:
			return err
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch {
			case line == "":
			case line == "quit":
				return nil
			case line == "players":
				ui.RenderRoster(h.Roster())
			case line == "start" || strings.HasPrefix(line, "start "):
				startGame(h, strings.TrimSpace(strings.TrimPrefix(line, "start")))
			default:
				h.SendChat(line)
			}
		}
	}
}

func startGame(h *lobby.Host, name string) {
	if name == "" {
		name = "fool"
	}
	table, err := h.StartGame(name, game.Params{Mode: flagHostMode, DeckSize: flagHostDeck})
	if err != nil {
		ui.PrintError(err.Error())
		return
	}
	ui.PrintSuccessf("Game started with %d players", len(table.Hands))
	// The host joined the roster first, so the first hand is ours.
	fmt.Println(ui.HandView(table.Hands[0], table.Trump))
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVarP(&flagHostDomain, "domain", "d", "", "Custom server domain")
	hostCmd.Flags().StringVarP(&flagHostSTUN, "stun", "s", "", "Custom STUN server")
	hostCmd.Flags().StringVarP(&flagHostTURN, "turn", "t", "", "Custom TURN server")
	hostCmd.Flags().StringVarP(&flagHostTURNUser, "turn-user", "u", "", "TURN username")
	hostCmd.Flags().StringVarP(&flagHostTURNPass, "turn-pass", "p", "", "TURN password")
	hostCmd.Flags().StringVarP(&flagHostName, "name", "n", "", "Player name shown in the roster")
	hostCmd.Flags().StringVarP(&flagHostPassword, "password", "P", "", "Room password")
	hostCmd.Flags().StringVarP(&flagHostMode, "mode", "m", "", "Fool mode: podkidnoy or perevodnoy")
	hostCmd.Flags().IntVarP(&flagHostDeck, "deck", "k", 0, "Deck size: 36 or 52")
}
