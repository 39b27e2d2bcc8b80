package deepcfr_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/deepcfr"
	"github.com/timpalpant/go-simcfr/kuhn"
	"github.com/timpalpant/go-simcfr/sampling"
	"github.com/timpalpant/go-simcfr/vocab"
)

var kuhnActions = []cfr.Action{"check", "bet"}

func newKuhnPolicy() *deepcfr.Policy {
	store := deepcfr.NewMemoryStore(0, 1)
	lock := &sync.Mutex{}
	registry := vocab.New()
	var advantage, strategy [2]*deepcfr.Model
	for player := 0; player < 2; player++ {
		trainer := deepcfr.NewTabularTrainer(registry)
		advantage[player] = deepcfr.NewModel(fmt.Sprintf("advantage%d", player), trainer, store, lock, 1000)
		strategy[player] = deepcfr.NewModel(fmt.Sprintf("strategy%d", player), trainer, store, lock, 1000)
	}

	return deepcfr.NewPolicy(advantage, strategy)
}

func TestDeepCFR_KuhnPoker(t *testing.T) {
	ctx := context.Background()
	policy := newKuhnPolicy()
	engine := cfr.NewEngine(kuhn.NewSession, policy, sampling.NewExternalSampler(), cfr.Params{})

	const nRounds = 100
	const itersPerRound = 100
	iter := 0
	for round := 0; round < nRounds; round++ {
		for i := 0; i < itersPerRound; i++ {
			if _, err := engine.Play(ctx, cfr.NewLedger(int64(iter)), iter); err != nil {
				t.Fatal(err)
			}
			iter++
		}

		for _, m := range policy.Models() {
			if _, err := m.Train(ctx, 1); err != nil {
				t.Fatal(err)
			}
		}
	}

	jackFacingBet := policy.AverageStrategy(1, cfr.InfoSet{"card", "J", "b"}, kuhnActions)
	t.Logf("P1 J b: check=%.3f bet=%.3f", jackFacingBet[0], jackFacingBet[1])
	if jackFacingBet[1] > 0.1 {
		t.Errorf("player 1 calls a bet with a Jack with probability %.2f", jackFacingBet[1])
	}

	kingFacingBet := policy.AverageStrategy(1, cfr.InfoSet{"card", "K", "b"}, kuhnActions)
	t.Logf("P1 K b: check=%.3f bet=%.3f", kingFacingBet[0], kingFacingBet[1])
	if kingFacingBet[1] < 0.9 {
		t.Errorf("player 1 calls a bet with a King with probability %.2f", kingFacingBet[1])
	}
}

func TestPolicy_RecordsAllActions(t *testing.T) {
	ctx := context.Background()
	policy := newKuhnPolicy()
	is := cfr.InfoSet{"card", "Q"}
	err := policy.AddRegret(0, is, kuhnActions, []float64{0.25, -0.25}, []bool{true, false}, 0.4, 4)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := policy.AdvantageModel(0).Train(ctx, 1); err != nil {
		t.Fatal(err)
	}

	regrets := policy.Regrets(0, is, kuhnActions)
	if regrets[0] != 0.25 || regrets[1] != -0.25 {
		t.Errorf("expected regrets of explored and unexplored actions, got %v", regrets)
	}
}

func TestPolicy_AverageStrategyIsUniformWhenUntrained(t *testing.T) {
	policy := newKuhnPolicy()
	strat := policy.AverageStrategy(0, cfr.InfoSet{"card", "K"}, kuhnActions)
	if strat[0] != 0.5 || strat[1] != 0.5 {
		t.Errorf("expected uniform strategy, got %v", strat)
	}
}

type fixedSession struct {
	cfr.Session
	infoSet cfr.InfoSet
}

func (f fixedSession) InfoSet(ctx context.Context, player int) (cfr.InfoSet, error) {
	return f.infoSet, nil
}

func TestValueEvaluator(t *testing.T) {
	ctx := context.Background()
	policy := newKuhnPolicy()
	is := cfr.InfoSet{"card", "K", "b"}
	policy.AddRegret(1, is, kuhnActions, []float64{-0.5, 0.5}, []bool{true, true}, 0.8, 1)
	policy.AddRegret(1, is, kuhnActions, []float64{-0.5, 0.5}, []bool{true, true}, 1.4, 1)
	if _, err := policy.AdvantageModel(1).Train(ctx, 1); err != nil {
		t.Fatal(err)
	}

	ev := deepcfr.NewValueEvaluator(policy)
	turn := cfr.Turn{Player: 1, Request: cfr.Request{Kind: cfr.Decision}, Actions: kuhnActions}
	v, err := ev.Evaluate(ctx, fixedSession{infoSet: is}, turn, 1)
	if err != nil {
		t.Fatal(err)
	}

	// The mean of 0.8 and 1.4 is clamped to 1.
	if v != 1 {
		t.Errorf("expected value 1, got %v", v)
	}

	v, err = ev.Evaluate(ctx, fixedSession{infoSet: cfr.InfoSet{"card", "J"}}, turn, 1)
	if err != nil {
		t.Fatal(err)
	}

	if v != 0.5 {
		t.Errorf("expected neutral value for unseen infoset, got %v", v)
	}
}

func TestDeepCFR_DepthLimitedWithValueEvaluator(t *testing.T) {
	ctx := context.Background()
	policy := newKuhnPolicy()
	engine := cfr.NewEngine(kuhn.NewSession, policy, sampling.NewExternalSampler(), cfr.Params{
		DepthLimit: 1,
		Evaluation: cfr.EvaluateHeuristic,
	})
	engine.SetEvaluator(deepcfr.NewValueEvaluator(policy))

	for i := 0; i < 200; i++ {
		ev, err := engine.Play(ctx, cfr.NewLedger(int64(i)), i)
		if err != nil {
			t.Fatal(err)
		}

		if ev < 0 || ev > 1 {
			t.Fatalf("iteration %d: ev %v out of [0, 1]", i, ev)
		}
	}

	if err := policy.Flush(); err != nil {
		t.Fatal(err)
	}
}
