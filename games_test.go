package cfr_test

import (
	"context"
	"fmt"
	"strconv"

	cfr "github.com/timpalpant/go-simcfr"
)

var foldCall = []cfr.Action{"fold", "call"}

// dominanceGame is a three round betting game in which player 0 always
// wins the showdown, so calling is strictly dominant for player 0.
// Each round player 0 then player 1 choose to fold or call. Folding loses 1.
// A showdown pays player 0 two.
//
// The seed only determines an irrelevant "card" token in both infosets,
// which lets replay tests check that the seed is honored.
type dominanceGame struct {
	seed    int64
	started bool
	history []int
	// waits is the number of Waiting requests returned before each real one.
	waits   int
	pending int
}

func newDominanceGame(seed int64) (cfr.Session, error) {
	return &dominanceGame{seed: seed}, nil
}

func (g *dominanceGame) Start(ctx context.Context) error {
	if g.started {
		return fmt.Errorf("already started")
	}

	g.started = true
	g.pending = g.waits
	return nil
}

func (g *dominanceGame) folded() (int, bool) {
	for i, a := range g.history {
		if a == 0 {
			return i % 2, true
		}
	}

	return 0, false
}

func (g *dominanceGame) Turn(ctx context.Context) (cfr.Turn, error) {
	if !g.started {
		return cfr.Turn{}, fmt.Errorf("not started")
	}

	if g.pending > 0 {
		g.pending--
		return cfr.Turn{Request: cfr.Request{Kind: cfr.Waiting}}, nil
	}

	if folder, ok := g.folded(); ok {
		payoff := 1.0
		if folder == 0 {
			payoff = -1.0
		}

		return cfr.Turn{Player: 0, Request: cfr.Request{Kind: cfr.Win, Payoff: payoff}}, nil
	}

	if len(g.history) == 6 {
		return cfr.Turn{Player: 0, Request: cfr.Request{Kind: cfr.Win, Payoff: 2}}, nil
	}

	return cfr.Turn{
		Player:  len(g.history) % 2,
		Request: cfr.Request{Kind: cfr.Decision},
		Actions: foldCall,
	}, nil
}

func (g *dominanceGame) TakeAction(ctx context.Context, player int, req cfr.Request, action int) error {
	if player != len(g.history)%2 {
		return fmt.Errorf("not player %d's turn", player)
	}

	if action < 0 || action >= len(foldCall) {
		return fmt.Errorf("invalid action %d", action)
	}

	g.history = append(g.history, action)
	g.pending = g.waits
	return nil
}

func (g *dominanceGame) InfoSet(ctx context.Context, player int) (cfr.InfoSet, error) {
	is := cfr.InfoSet{"p" + strconv.Itoa(player), "card", strconv.FormatInt(g.seed%3, 10)}
	for _, a := range g.history {
		is = append(is, string(foldCall[a]))
	}

	return is, nil
}

func (g *dominanceGame) Close() error {
	return nil
}

// dominanceRound1 is player 0's infoset at its first decision.
func dominanceRound1(seed int64) cfr.InfoSet {
	return cfr.InfoSet{"p0", "card", strconv.FormatInt(seed%3, 10)}
}

// closeCounter wraps a SessionFactory and counts sessions created and closed.
type closeCounter struct {
	factory cfr.SessionFactory
	created int
	closed  int
}

func (c *closeCounter) newSession(seed int64) (cfr.Session, error) {
	s, err := c.factory(seed)
	if err != nil {
		return nil, err
	}

	c.created++
	return &countedSession{Session: s, c: c}, nil
}

type countedSession struct {
	cfr.Session
	c *closeCounter
}

func (s *countedSession) Close() error {
	s.c.closed++
	return s.Session.Close()
}
