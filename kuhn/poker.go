// Package kuhn implements Kuhn Poker as a deterministic, seed-driven
// game session, adapted from: https://justinsermeno.com/posts/cfr/.
package kuhn

import (
	"context"
	"fmt"
	"math/rand"

	cfr "github.com/timpalpant/go-simcfr"
)

const (
	player0 = 0
	player1 = 1
)

const (
	Check = 'c'
	Bet   = 'b'
)

var actions = []cfr.Action{"check", "bet"}

type Card int

const (
	Jack Card = iota
	Queen
	King
)

var cardStr = [...]string{
	"J",
	"Q",
	"K",
}

func (c Card) String() string {
	return cardStr[c]
}

// Game implements cfr.Session for Kuhn Poker. The deal is determined
// entirely by the seed the game was created with.
type Game struct {
	seed    int64
	started bool
	history string

	// Private card held by either player.
	p0Card, p1Card Card
}

// NewGame returns a new, un-started game dealt from the given seed.
func NewGame(seed int64) *Game {
	return &Game{seed: seed}
}

// NewSession implements cfr.SessionFactory.
func NewSession(seed int64) (cfr.Session, error) {
	return NewGame(seed), nil
}

// String implements fmt.Stringer.
func (k *Game) String() string {
	return fmt.Sprintf("Player %v's turn. History: %5s [Cards: P0 - %s, P1 - %s]",
		k.player(), k.history, k.p0Card, k.p1Card)
}

// Start implements cfr.Session.
func (k *Game) Start(ctx context.Context) error {
	if k.started {
		return fmt.Errorf("game already started")
	}

	rng := rand.New(rand.NewSource(k.seed))
	deck := rng.Perm(3)
	k.p0Card = Card(deck[0])
	k.p1Card = Card(deck[1])
	k.started = true
	return nil
}

// Turn implements cfr.Session. It may be called repeatedly and
// returns the same request until an action is taken.
func (k *Game) Turn(ctx context.Context) (cfr.Turn, error) {
	if !k.started {
		return cfr.Turn{}, fmt.Errorf("game not started")
	}

	if k.IsTerminal() {
		return cfr.Turn{
			Player: player0,
			Request: cfr.Request{
				Kind:   cfr.Win,
				Payoff: k.Utility(player0),
			},
		}, nil
	}

	return cfr.Turn{
		Player:  k.player(),
		Request: cfr.Request{Kind: cfr.Decision, State: []byte(k.history)},
		Actions: actions,
	}, nil
}

// TakeAction implements cfr.Session.
func (k *Game) TakeAction(ctx context.Context, player int, req cfr.Request, action int) error {
	if k.IsTerminal() {
		return fmt.Errorf("game is over: %v", k)
	}

	if player != k.player() {
		return fmt.Errorf("player %d cannot act on player %d's turn", player, k.player())
	}

	if string(req.State) != k.history {
		return fmt.Errorf("stale request: history %q, current %q", req.State, k.history)
	}

	switch action {
	case 0:
		k.history += string([]byte{Check})
	case 1:
		k.history += string([]byte{Bet})
	default:
		return fmt.Errorf("invalid action: %d", action)
	}

	return nil
}

// InfoSet implements cfr.Session.
func (k *Game) InfoSet(ctx context.Context, player int) (cfr.InfoSet, error) {
	is := cfr.InfoSet{"card", k.playerCard(player).String()}
	for _, c := range k.history {
		is = append(is, string(c))
	}

	return is, nil
}

// Close implements cfr.Session.
func (k *Game) Close() error {
	return nil
}

func (k *Game) player() int {
	return len(k.history) % 2
}

func (k *Game) IsTerminal() bool {
	switch k.history {
	case "cc", "cbc", "cbb", "bc", "bb":
		return true
	}

	return false
}

// Utility returns the terminal payoff for the given player.
func (k *Game) Utility(player int) float64 {
	cardPlayer := k.playerCard(player)
	cardOpponent := k.playerCard(1 - player)

	if k.history == "cbc" || k.history == "bc" {
		// Last player folded. The player to act next wins.
		if k.player() == player {
			return 1.0
		}

		return -1.0
	} else if k.history == "cc" {
		// Showdown with no bets.
		if cardPlayer > cardOpponent {
			return 1.0
		}

		return -1.0
	}

	// Showdown with 1 bet.
	if k.history != "cbb" && k.history != "bb" {
		panic("unexpected history: " + k.history)
	}

	if cardPlayer > cardOpponent {
		return 2.0
	}

	return -2.0
}

func (k *Game) playerCard(player int) Card {
	if player == player0 {
		return k.p0Card
	}

	return k.p1Card
}
