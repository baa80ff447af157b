package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dodomondo0/fool-p2p-app/internal/config"
	"github.com/dodomondo0/fool-p2p-app/internal/lobby"
	"github.com/dodomondo0/fool-p2p-app/internal/peer"
	"github.com/dodomondo0/fool-p2p-app/internal/signaling"
	"github.com/dodomondo0/fool-p2p-app/internal/ui"
)

var (
	flagJoinDomain   string
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
	flagJoinName     string
	flagJoinPassword string
)

var joinCmd = &cobra.Command{
	Use:     "join <room>",
	Aliases: []string{"j"},
	Short:   "Join a hosted room",
	Long: `Join a room another player hosts. Once the host is discovered, a direct
WebRTC connection is negotiated and all game traffic flows peer to peer.

Examples:
  fool join kitchen-table
  fool join kitchen-table --password secret --name Misha`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(args[0])
	},
}

func runJoin(room string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagJoinDomain,
		STUNServer: flagJoinSTUN,
		TURNServer: flagJoinTURN,
		TURNUser:   flagJoinTURNUser,
		TURNPass:   flagJoinTURNPass,
		PlayerName: flagJoinName,
	})
	if err != nil {
		return err
	}

	events := make(chan func(), eventBuffer)
	c := lobby.NewClient(cfg, room, flagJoinPassword, func(f func()) { events <- f })
	defer c.Close()

	fmt.Println()
	sp := ui.NewConnectionSpinner("Joining room...")
	sp.Start()
	waiting := ui.NewWaitingSpinner("Waiting for the host...")
	defer func() {
		sp.Stop()
		waiting.Stop()
	}()

	fatal := make(chan error, 1)
	c.OnJoined(func(res signaling.JoinResult) {
		if !res.Success {
			sp.Stop()
			select {
			case fatal <- errors.New(res.Message):
			default:
			}
			return
		}
		sp.Success(fmt.Sprintf("Joined room %s", res.Room))
		waiting.Start()
	})
	c.OnPeerState(func(state peer.ConnectionState) {
		switch state {
		case peer.StateConnected:
			waiting.Success("Connected to host")
			ui.PrintInfo("Type a message to chat, \"quit\" to leave.")
		case peer.StateClosed:
			ui.PrintWarning("Host connection lost")
		}
	})
	c.OnRosterChange(ui.RenderRoster)
	c.OnGameStart(func(name string, params map[string]any) {
		ui.PrintSuccessf("Host started %s", name)
	})
	c.OnChat(ui.PrintChat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

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
			switch line {
			case "":
			case "quit":
				return nil
			case "players":
				ui.RenderRoster(c.Roster())
			default:
				if !c.SendChat(line) {
					ui.PrintWarning("Not connected to the host yet")
				}
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagJoinDomain, "domain", "d", "", "Custom server domain")
	joinCmd.Flags().StringVarP(&flagJoinSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagJoinTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVarP(&flagJoinTURNUser, "turn-user", "u", "", "TURN username")
	joinCmd.Flags().StringVarP(&flagJoinTURNPass, "turn-pass", "p", "", "TURN password")
	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "Player name shown in the roster")
	joinCmd.Flags().StringVarP(&flagJoinPassword, "password", "P", "", "Room password")
}
