package kuhn

import (
	"context"
	"testing"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/sampling"
)

func TestPoker_Deal(t *testing.T) {
	ctx := context.Background()
	seen := make(map[[2]Card]bool)
	for seed := int64(0); seed < 200; seed++ {
		g := NewGame(seed)
		if err := g.Start(ctx); err != nil {
			t.Fatal(err)
		}

		if g.p0Card == g.p1Card {
			t.Fatalf("seed %d: both players dealt %v", seed, g.p0Card)
		}

		seen[[2]Card{g.p0Card, g.p1Card}] = true
	}

	if len(seen) != 6 {
		t.Errorf("expected all 6 deals, saw %d", len(seen))
	}
}

func TestPoker_Utility(t *testing.T) {
	ctx := context.Background()
	g := NewGame(0)
	if err := g.Start(ctx); err != nil {
		t.Fatal(err)
	}
	g.p0Card, g.p1Card = King, Jack

	for _, a := range []int{1, 1} { // bet, call
		turn, err := g.Turn(ctx)
		if err != nil {
			t.Fatal(err)
		}

		if err := g.TakeAction(ctx, turn.Player, turn.Request, a); err != nil {
			t.Fatal(err)
		}
	}

	turn, err := g.Turn(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if turn.Request.Kind != cfr.Win || turn.Player != player0 || turn.Request.Payoff != 2 {
		t.Errorf("expected player 0 to win 2, got %+v", turn)
	}

	if err := g.TakeAction(ctx, player0, turn.Request, 0); err == nil {
		t.Error("expected error acting after the game is over")
	}
}

func TestPoker_ExternalSamplingCFR(t *testing.T) {
	testCFR(t, sampling.NewExternalSampler(), cfr.DiscountParams{}, 20000)
}

func TestPoker_AverageStrategySamplingCFR(t *testing.T) {
	testCFR(t, sampling.NewAverageStrategySampler(sampling.AverageStrategyParams{
		Exploration: 0.5,
		Bonus:       10,
		Threshold:   1,
	}), cfr.DiscountParams{}, 20000)
}

func TestPoker_CFRPlus(t *testing.T) {
	testCFR(t, sampling.NewExternalSampler(), cfr.DiscountParams{
		UseRegretMatchingPlus: true,
	}, 20000)
}

func TestPoker_DiscountedCFR(t *testing.T) {
	testCFR(t, sampling.NewExternalSampler(), cfr.DiscountParams{
		DiscountAlpha: 1.5,
		DiscountBeta:  0.5,
		DiscountGamma: 2,
	}, 20000)
}

func testCFR(t *testing.T, sampler cfr.Sampler, params cfr.DiscountParams, nIter int) {
	ctx := context.Background()
	policy := cfr.NewTablePolicy(params)
	engine := cfr.NewEngine(NewSession, policy, sampler, cfr.Params{})
	for i := 0; i < nIter; i++ {
		if _, err := engine.Play(ctx, cfr.NewLedger(int64(i)), i); err != nil {
			t.Fatal(err)
		}
	}

	for _, card := range []Card{Jack, Queen, King} {
		for _, history := range []string{"", "c", "b", "cb"} {
			is := cfr.InfoSet{"card", card.String()}
			for _, c := range history {
				is = append(is, string(c))
			}

			player := len(history) % 2
			strat := policy.AverageStrategy(player, is, actions)
			t.Logf("P%d %s %-2s: check=%.2f bet=%.2f", player, card, history, strat[0], strat[1])
		}
	}

	// Facing a bet, player 1 must fold a Jack and call with a King.
	jackFacingBet := policy.AverageStrategy(player1, cfr.InfoSet{"card", "J", "b"}, actions)
	if jackFacingBet[1] > 0.1 {
		t.Errorf("player 1 calls a bet with a Jack with probability %.2f", jackFacingBet[1])
	}

	kingFacingBet := policy.AverageStrategy(player1, cfr.InfoSet{"card", "K", "b"}, actions)
	if kingFacingBet[1] < 0.9 {
		t.Errorf("player 1 calls a bet with a King with probability %.2f", kingFacingBet[1])
	}
}

// BenchmarkPoker_Traversal measures one external sampling traversal.
func BenchmarkPoker_Traversal(b *testing.B) {
	ctx := context.Background()
	policy := cfr.NewTablePolicy(cfr.DiscountParams{})
	engine := cfr.NewEngine(NewSession, policy, sampling.NewExternalSampler(), cfr.Params{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Play(ctx, cfr.NewLedger(int64(i)), i); err != nil {
			b.Fatal(err)
		}
	}
}
