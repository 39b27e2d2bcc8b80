// Package warpoker implements one-card poker ("war poker"), a small
// betting game used to exercise the traversal engine end to end.
// See: http://www.cs.cmu.edu/~ggordon/poker/
//
// Both players ante 1 and receive one card from a 13 card deck. The dealer
// (chosen by the seed) deals, the other player may check or raise, and the
// hand proceeds through at most one re-raise before a showdown. Every
// action is public; a player's infoset is written in the first person.
package warpoker

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	cfr "github.com/timpalpant/go-simcfr"
)

const (
	Deal  cfr.Action = "deal"
	Fold  cfr.Action = "fold"
	Call  cfr.Action = "call"
	Raise cfr.Action = "raise"
)

// MinCard and MaxCard bound the card ranks in the deck.
const (
	MinCard = 2
	MaxCard = 14
)

type state int

const (
	start state = iota
	// Non-dealer checks or raises.
	firstBet
	// Non-dealer checked; dealer checks or raises.
	secondBet
	// Dealer raised after a check; non-dealer folds or calls.
	firstCall
	// Non-dealer raised; dealer folds or calls.
	secondCall
	end
)

var stateActions = map[state][]cfr.Action{
	start:      {Deal},
	firstBet:   {Call, Raise}, // Call is a check here.
	secondBet:  {Call, Raise},
	firstCall:  {Fold, Call},
	secondCall: {Fold, Call},
}

// Game implements cfr.Session and cfr.Reseeder for war poker.
type Game struct {
	seed int64
	rng  *rand.Rand

	state   state
	started bool
	dealer  int
	hands   [2]int
	pot     [2]int
	bet     int
	winner  int
	folded  bool

	infoSets [2]cfr.InfoSet
}

// NewGame returns a new, un-started game for the given seed.
func NewGame(seed int64) *Game {
	return &Game{seed: seed}
}

// NewSession implements cfr.SessionFactory.
func NewSession(seed int64) (cfr.Session, error) {
	return NewGame(seed), nil
}

func (g *Game) String() string {
	return fmt.Sprintf("state=%d dealer=%d hands=%v pot=%v folded=%v", g.state, g.dealer, g.hands, g.pot, g.folded)
}

// Start implements cfr.Session. The dealer and both hands are
// determined by the seed.
func (g *Game) Start(ctx context.Context) error {
	if g.started {
		return fmt.Errorf("game already started")
	}

	g.rng = rand.New(rand.NewSource(g.seed))
	g.dealer = g.rng.Intn(2)
	deck := make([]int, 0, MaxCard-MinCard+1)
	for c := MinCard; c <= MaxCard; c++ {
		deck = append(deck, c)
	}

	g.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	g.hands = [2]int{deck[len(deck)-1], deck[len(deck)-2]}
	g.pot = [2]int{1, 1}
	for i := range g.infoSets {
		g.infoSets[i] = cfr.InfoSet{"start", "hand", strconv.Itoa(g.hands[i])}
	}

	g.started = true
	return nil
}

// Reseed implements cfr.Reseeder. Cards are dealt at the start of the
// game, so reseeding has no effect on the outcome.
func (g *Game) Reseed(ctx context.Context, seed int64) error {
	g.rng = rand.New(rand.NewSource(seed))
	return nil
}

func (g *Game) currentPlayer() int {
	switch g.state {
	case firstBet, firstCall:
		return 1 - g.dealer
	case end:
		return g.winner
	}

	return g.dealer
}

// Turn implements cfr.Session.
func (g *Game) Turn(ctx context.Context) (cfr.Turn, error) {
	if !g.started {
		return cfr.Turn{}, fmt.Errorf("game not started")
	}

	if g.state == end {
		loser := 1 - g.winner
		return cfr.Turn{
			Player: g.winner,
			Request: cfr.Request{
				Kind:   cfr.Win,
				Payoff: float64(g.pot[loser]) / 2,
			},
		}, nil
	}

	return cfr.Turn{
		Player:  g.currentPlayer(),
		Request: cfr.Request{Kind: cfr.Decision, State: []byte(strconv.Itoa(int(g.state)))},
		Actions: stateActions[g.state],
	}, nil
}

// InfoSet implements cfr.Session. The acting player also sees the
// actions currently offered.
func (g *Game) InfoSet(ctx context.Context, player int) (cfr.InfoSet, error) {
	if player != 0 && player != 1 {
		return nil, fmt.Errorf("invalid player: %d", player)
	}

	is := g.infoSets[player]
	if g.state != end && player == g.currentPlayer() {
		is = is.Append("OPTIONS")
		for i, a := range stateActions[g.state] {
			is = is.Append("@"+strconv.Itoa(i), string(a))
		}
	}

	return is.Append(), nil
}

// TakeAction implements cfr.Session.
func (g *Game) TakeAction(ctx context.Context, player int, req cfr.Request, action int) error {
	if !g.started {
		return fmt.Errorf("game not started")
	}

	if g.state == end {
		return fmt.Errorf("game is over")
	}

	if player != g.currentPlayer() {
		return fmt.Errorf("player %d cannot act on player %d's turn", player, g.currentPlayer())
	}

	offered := stateActions[g.state]
	if action < 0 || action >= len(offered) {
		return fmt.Errorf("action %d out of range [0, %d)", action, len(offered))
	}

	a := offered[action]
	for i := range g.infoSets {
		who := "1"
		if i == player {
			who = "0"
		}

		g.infoSets[i] = g.infoSets[i].Append(who, string(a))
	}

	switch g.state {
	case start:
		g.dealer = player
		g.state = firstBet
	case firstBet:
		if a == Raise {
			g.raise(player)
			g.state = secondCall
		} else {
			g.state = secondBet
		}
	case secondBet:
		if a == Raise {
			g.raise(player)
			g.state = firstCall
		} else {
			g.showdown()
		}
	case firstCall, secondCall:
		if a == Fold {
			g.folded = true
			g.winner = 1 - player
			g.state = end
		} else {
			g.pot[player] += g.bet
			g.showdown()
		}
	}

	return nil
}

func (g *Game) raise(player int) {
	g.bet++
	g.pot[player] += g.bet
}

func (g *Game) showdown() {
	if g.hands[0] > g.hands[1] {
		g.winner = 0
	} else {
		g.winner = 1
	}

	g.state = end
}

// Close implements cfr.Session.
func (g *Game) Close() error {
	return nil
}

// Hand returns the card held by the given player.
func (g *Game) Hand(player int) int {
	return g.hands[player]
}
