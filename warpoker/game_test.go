package warpoker

import (
	"context"
	"testing"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/sampling"
)

func TestGame_Deal(t *testing.T) {
	ctx := context.Background()
	for seed := int64(0); seed < 100; seed++ {
		g := NewGame(seed)
		if err := g.Start(ctx); err != nil {
			t.Fatal(err)
		}

		h0, h1 := g.Hand(0), g.Hand(1)
		if h0 == h1 || h0 < MinCard || h0 > MaxCard || h1 < MinCard || h1 > MaxCard {
			t.Fatalf("seed %d: invalid deal %d, %d", seed, h0, h1)
		}

		again := NewGame(seed)
		if err := again.Start(ctx); err != nil {
			t.Fatal(err)
		}

		if again.Hand(0) != h0 || again.Hand(1) != h1 {
			t.Errorf("seed %d: deal is not deterministic", seed)
		}
	}

	if err := NewGame(0).TakeAction(ctx, 0, cfr.Request{}, 0); err == nil {
		t.Error("expected error acting before the game is started")
	}
}

func play(t *testing.T, g *Game, actions ...cfr.Action) cfr.Turn {
	ctx := context.Background()
	if err := g.Start(ctx); err != nil {
		t.Fatal(err)
	}

	for _, a := range actions {
		turn, err := g.Turn(ctx)
		if err != nil {
			t.Fatal(err)
		}

		idx := -1
		for i, offered := range turn.Actions {
			if offered == a {
				idx = i
			}
		}

		if idx < 0 {
			t.Fatalf("action %s not offered in %v", a, turn.Actions)
		}

		if err := g.TakeAction(ctx, turn.Player, turn.Request, idx); err != nil {
			t.Fatal(err)
		}
	}

	turn, err := g.Turn(ctx)
	if err != nil {
		t.Fatal(err)
	}

	return turn
}

func TestGame_Fold(t *testing.T) {
	g := NewGame(1)
	turn := play(t, g, Deal, Raise, Fold)
	if turn.Request.Kind != cfr.Win {
		t.Fatalf("expected game over, got %+v", turn)
	}

	// The dealer folded to the non-dealer's raise, losing the ante.
	if turn.Player != 1-g.dealer || turn.Request.Payoff != 0.5 {
		t.Errorf("expected player %d to win 0.5, got %+v", 1-g.dealer, turn)
	}
}

func TestGame_Showdown(t *testing.T) {
	g := NewGame(2)
	turn := play(t, g, Deal, Call, Raise, Call)
	if turn.Request.Kind != cfr.Win {
		t.Fatalf("expected game over, got %+v", turn)
	}

	winner := 0
	if g.Hand(1) > g.Hand(0) {
		winner = 1
	}

	if turn.Player != winner || turn.Request.Payoff != 1 {
		t.Errorf("expected player %d to win 1, got %+v", winner, turn)
	}
}

func TestGame_InfoSetShowsOptions(t *testing.T) {
	ctx := context.Background()
	g := NewGame(3)
	play(t, g, Deal)
	actor := 1 - g.dealer
	is, err := g.InfoSet(ctx, actor)
	if err != nil {
		t.Fatal(err)
	}

	want := cfr.InfoSet{"start", "hand", "", "1", "deal", "OPTIONS", "@0", "call", "@1", "raise"}
	want[2] = is[2]
	if is.Key() != want.Key() {
		t.Errorf("expected infoset %v, got %v", want, is)
	}

	if _, err := g.InfoSet(ctx, 2); err == nil {
		t.Error("expected error for invalid player")
	}
}

func TestHandStrength(t *testing.T) {
	ctx := context.Background()
	for seed := int64(0); seed < 20; seed++ {
		g := NewGame(seed)
		if err := g.Start(ctx); err != nil {
			t.Fatal(err)
		}

		for player := 0; player < 2; player++ {
			v, err := HandStrength{}.Evaluate(ctx, g, cfr.Turn{}, player)
			if err != nil {
				t.Fatal(err)
			}

			want := float64(g.Hand(player)-MinCard+1) / 14
			if v != want || v <= 0 || v >= 1 {
				t.Errorf("hand %d: expected strength %v, got %v", g.Hand(player), want, v)
			}
		}
	}
}

func TestGame_DepthLimitedCFR(t *testing.T) {
	ctx := context.Background()
	policy := cfr.NewTablePolicy(cfr.DiscountParams{})
	engine := cfr.NewEngine(NewSession, policy, sampling.NewExternalSampler(), cfr.Params{
		DepthLimit:     1,
		Evaluation:     cfr.EvaluateHeuristic,
		ReseedBranches: true,
	})
	engine.SetEvaluator(HandStrength{})

	for i := 0; i < 500; i++ {
		ev, err := engine.Play(ctx, cfr.NewLedger(int64(i)), i)
		if err != nil {
			t.Fatal(err)
		}

		if ev < 0 || ev > 1 {
			t.Fatalf("iteration %d: ev %v out of [0, 1]", i, ev)
		}
	}

	stats := engine.Stats()
	t.Logf("stats: %v", stats)
	if stats.Evaluations == 0 {
		t.Error("expected the hand strength heuristic to be used")
	}
}
