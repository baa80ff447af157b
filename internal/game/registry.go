// Package game holds the catalog of playable games. The catalog is closed
// and known at compile time, so games are registered in a static table
// rather than discovered at runtime.
package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Info describes one game to the lobby.
type Info struct {
	Name       string
	Title      string
	MinPlayers int
	MaxPlayers int
}

// Params are the host-chosen table settings, fixed before the game starts.
type Params struct {
	Mode     string `json:"mode"`
	DeckSize int    `json:"deck_size"`
	Players  int    `json:"players_count"`
}

// Game is one playable game: it validates its parameters and sets up the
// initial table.
type Game interface {
	Info() Info
	// Deal builds the initial table for the given player count.
	Deal(players int) (*Table, error)
}

// Factory builds a game configured with params.
type Factory func(params Params) (Game, error)

// ErrUnknownGame is returned for identifiers outside the catalog.
var ErrUnknownGame = errors.New("unknown game")

var catalog = map[string]Factory{
	"fool": newFool,
}

// New builds the named game with params, or ErrUnknownGame.
func New(name string, params Params) (Game, error) {
	factory, ok := catalog[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, name)
	}
	return factory(params)
}

// Names lists the catalog identifiers, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
