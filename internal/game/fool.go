package game

import (
	"fmt"
	"math/rand"
)

// Fool game modes.
const (
	ModeThrowIn = "podkidnoy"  // defenders can be thrown extra cards
	ModePassing = "perevodnoy" // defenders can pass the attack along
)

const handSize = 6

// Card is a single playing card.
type Card struct {
	Value string `json:"value"`
	Suit  string `json:"suit"`
}

func (c Card) String() string {
	return c.Value + c.Suit
}

// Table is the initial deal: one hand per player, the trump card, and the
// remaining stock.
type Table struct {
	Hands [][]Card
	Trump Card
	Stock []Card
}

// Fool sets up the Russian card game "durak". Move legality and turn order
// live in the rules engine, not here.
type Fool struct {
	mode     string
	deckSize int
}

func newFool(params Params) (Game, error) {
	mode := params.Mode
	if mode == "" {
		mode = ModeThrowIn
	}
	if mode != ModeThrowIn && mode != ModePassing {
		return nil, fmt.Errorf("unsupported fool mode: %q", params.Mode)
	}

	size := params.DeckSize
	if size == 0 {
		size = 36
	}
	if size != 36 && size != 52 {
		return nil, fmt.Errorf("fool is played with 36 or 52 cards, not %d", size)
	}

	return &Fool{mode: mode, deckSize: size}, nil
}

func (f *Fool) Info() Info {
	return Info{
		Name:       "fool",
		Title:      "Fool (Durak)",
		MinPlayers: 2,
		MaxPlayers: f.deckSize / handSize,
	}
}

// Deal shuffles a fresh deck and deals six cards per player. The last card
// of the stock fixes the trump suit.
func (f *Fool) Deal(players int) (*Table, error) {
	if players < 2 {
		return nil, fmt.Errorf("fool needs at least 2 players, got %d", players)
	}
	if players*handSize > f.deckSize {
		return nil, fmt.Errorf("%d players need at least %d cards, deck has %d",
			players, players*handSize, f.deckSize)
	}

	deck := newDeck(f.deckSize)
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	// The bottom card fixes the trump suit; cards are dealt from the top.
	trump := deck[0]
	hands := make([][]Card, players)
	for round := 0; round < handSize; round++ {
		for p := range hands {
			hands[p] = append(hands[p], deck[len(deck)-1])
			deck = deck[:len(deck)-1]
		}
	}

	return &Table{
		Hands: hands,
		Trump: trump,
		Stock: deck,
	}, nil
}

var (
	suits       = []string{"♠", "♥", "♦", "♣"}
	shortValues = []string{"6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	fullValues  = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
)

func newDeck(size int) []Card {
	values := shortValues
	if size == 52 {
		values = fullValues
	}
	deck := make([]Card, 0, size)
	for _, s := range suits {
		for _, v := range values {
			deck = append(deck, Card{Value: v, Suit: s})
		}
	}
	return deck
}
