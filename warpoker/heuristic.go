package warpoker

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
)

// HandStrength implements cfr.Evaluator by estimating the probability
// that the on player's card is the higher one, using only the on player's
// infoset. The estimate has a Laplace prior so it is never exactly 0 or 1.
type HandStrength struct{}

// Evaluate implements cfr.Evaluator.
func (HandStrength) Evaluate(ctx context.Context, s cfr.Session, turn cfr.Turn, onPlayer int) (float64, error) {
	is, err := s.InfoSet(ctx, onPlayer)
	if err != nil {
		return 0, err
	}

	card, err := handFromInfoSet(is)
	if err != nil {
		return 0, err
	}

	// Cards below ours out of the 12 the opponent could hold.
	below := card - MinCard
	return float64(below+1) / float64(MaxCard-MinCard+2), nil
}

func handFromInfoSet(is cfr.InfoSet) (int, error) {
	for i := 0; i+1 < len(is); i++ {
		if is[i] == "hand" {
			card, err := strconv.Atoi(is[i+1])
			if err != nil {
				return 0, errors.Wrapf(err, "parsing hand from infoset %v", is)
			}

			return card, nil
		}
	}

	return 0, errors.Errorf("no hand in infoset %v", is)
}
