package cfr

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// DefaultMaxWaits is the number of consecutive Waiting requests tolerated
// before a session is considered stuck.
const DefaultMaxWaits = 1000

// Entry is one recorded action in a game's history.
type Entry struct {
	Player int
	Action int
	// If HasSeed is set, the simulator is reseeded with Seed before
	// the action is applied.
	Seed    int64
	HasSeed bool
}

// Ledger is the recorded history of a game: the seed it was created with
// and every action applied since. Replaying a Ledger into a fresh session
// reconstructs the same decision point, which is how the engine branches
// on a simulator that cannot fork.
//
// Ledgers are values: Extend never modifies the receiver.
type Ledger struct {
	Seed    int64
	Entries []Entry
}

// NewLedger returns an empty Ledger for a game created with the given seed.
func NewLedger(seed int64) Ledger {
	return Ledger{Seed: seed}
}

// Len returns the number of recorded entries.
func (l Ledger) Len() int {
	return len(l.Entries)
}

// Extend returns a new Ledger with e appended. The returned ledger does not
// share its entries with the receiver.
func (l Ledger) Extend(e Entry) Ledger {
	entries := make([]Entry, len(l.Entries), len(l.Entries)+1)
	copy(entries, l.Entries)
	return Ledger{
		Seed:    l.Seed,
		Entries: append(entries, e),
	}
}

// Replay creates a new session with the ledger's seed, starts it and
// applies every recorded entry. The returned session is positioned at the
// decision point following the last entry. If anything goes wrong the new
// session is closed before returning.
func Replay(ctx context.Context, newSession SessionFactory, l Ledger, maxWaits int) (Session, error) {
	s, err := newSession(l.Seed)
	if err != nil {
		return nil, errors.Wrapf(err, "creating session for seed %d", l.Seed)
	}

	if err := replayInto(ctx, s, l, maxWaits); err != nil {
		if cerr := s.Close(); cerr != nil {
			glog.Warningf("error closing session after failed replay: %v", cerr)
		}

		return nil, err
	}

	return s, nil
}

func replayInto(ctx context.Context, s Session, l Ledger, maxWaits int) error {
	if err := s.Start(ctx); err != nil {
		return errors.Wrap(err, "starting session")
	}

	for i, e := range l.Entries {
		turn, err := NextTurn(ctx, s, maxWaits)
		if err != nil {
			return errors.Wrapf(err, "replaying entry %d", i)
		}

		if turn.Request.Kind != Decision {
			return protocolErrorf("replay entry %d: expected decision, got %v", i, turn.Request.Kind)
		}

		if turn.Player != e.Player {
			return protocolErrorf("replay entry %d: expected player %d to act, got player %d",
				i, e.Player, turn.Player)
		}

		if e.Action < 0 || e.Action >= len(turn.Actions) {
			return protocolErrorf("replay entry %d: action %d out of range [0, %d)",
				i, e.Action, len(turn.Actions))
		}

		if e.HasSeed {
			if err := reseed(ctx, s, e.Seed); err != nil {
				return err
			}
		}

		if err := s.TakeAction(ctx, e.Player, turn.Request, e.Action); err != nil {
			return errors.Wrapf(err, "replay entry %d: taking action", i)
		}
	}

	glog.V(3).Infof("Replayed %d entries from seed %d", len(l.Entries), l.Seed)
	return nil
}

// NextTurn asks the session for its next request, skipping over Waiting
// requests. More than maxWaits consecutive Waiting requests is a protocol
// error.
func NextTurn(ctx context.Context, s Session, maxWaits int) (Turn, error) {
	if maxWaits <= 0 {
		maxWaits = DefaultMaxWaits
	}

	for i := 0; i <= maxWaits; i++ {
		if err := ctx.Err(); err != nil {
			return Turn{}, err
		}

		turn, err := s.Turn(ctx)
		if err != nil {
			return Turn{}, errors.Wrap(err, "getting turn")
		}

		if turn.Request.Kind != Waiting {
			return turn, nil
		}
	}

	return Turn{}, protocolErrorf("session still waiting after %d requests", maxWaits)
}

func reseed(ctx context.Context, s Session, seed int64) error {
	r, ok := s.(Reseeder)
	if !ok {
		return protocolErrorf("session %T cannot be reseeded", s)
	}

	return errors.Wrap(r.Reseed(ctx, seed), "reseeding session")
}
