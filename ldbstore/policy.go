package ldbstore

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	cfr "github.com/timpalpant/go-simcfr"
)

const (
	regretPrefix   = 'r'
	strategyPrefix = 's'
)

// PolicyTable is a tabular policy that keeps all regrets and strategy sums
// on disk in a LevelDB database. PolicyTable implements cfr.Policy.
//
// It is functionally equivalent to a cfr.TablePolicy. In practice, it is significantly
// slower but will use constant amount of memory since all entries are kept on disk.
// Read errors are unrecoverable and cause a panic.
type PolicyTable struct {
	// mu serializes read-modify-write updates from concurrent workers.
	mu sync.Mutex

	path   string
	params cfr.DiscountParams

	db    *leveldb.DB
	rOpts *opt.ReadOptions
	wOpts *opt.WriteOptions
}

// New creates a new PolicyTable backed by a LevelDB database at the given path.
func New(path string, opts *opt.Options, params cfr.DiscountParams) (*PolicyTable, error) {
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	return &PolicyTable{
		path:   path,
		params: params,
		db:     db,
	}, nil
}

// Close implements io.Closer.
func (pt *PolicyTable) Close() error {
	return pt.db.Close()
}

func tablePrefix(kind byte, player int) []byte {
	return []byte{kind, byte(player)}
}

func entryKey(kind byte, player int, infoSet cfr.InfoSet, action cfr.Action) []byte {
	return append(tablePrefix(kind, player), infoSet.Append(string(action)).Key()...)
}

func (pt *PolicyTable) get(key []byte) float64 {
	buf, err := pt.db.Get(key, pt.rOpts)
	if err == leveldb.ErrNotFound {
		return 0
	} else if err != nil {
		panic(err)
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

func (pt *PolicyTable) lookup(kind byte, player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	result := make([]float64, len(actions))
	for i, a := range actions {
		result[i] = pt.get(entryKey(kind, player, infoSet, a))
	}

	return result
}

func putFloat(batch *leveldb.Batch, key []byte, x float64) {
	batch.Put(key, binary.LittleEndian.AppendUint64(nil, math.Float64bits(x)))
}

// Regrets implements cfr.Policy.
func (pt *PolicyTable) Regrets(player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	return pt.lookup(regretPrefix, player, infoSet, actions)
}

// StrategySum implements cfr.Policy.
func (pt *PolicyTable) StrategySum(player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	return pt.lookup(strategyPrefix, player, infoSet, actions)
}

// AddRegret implements cfr.Policy. Unexplored actions are left untouched.
func (pt *PolicyTable) AddRegret(player int, infoSet cfr.InfoSet, actions []cfr.Action, regrets []float64, explored []bool, ev float64, iter int) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	discountPos, discountNeg, _ := pt.params.GetDiscountFactors(cfr.PlayerIter(iter))
	batch := new(leveldb.Batch)
	for i, a := range actions {
		if !explored[i] {
			continue
		}

		key := entryKey(regretPrefix, player, infoSet, a)
		old := pt.get(key)
		if old > 0 {
			old *= discountPos
		} else if old < 0 {
			old *= discountNeg
		}

		x := old + regrets[i]
		if pt.params.UseRegretMatchingPlus && x < 0 {
			x = 0
		}

		putFloat(batch, key, x)
	}

	return errors.Wrap(pt.db.Write(batch, pt.wOpts), "writing regrets")
}

// AddStrategy implements cfr.Policy.
func (pt *PolicyTable) AddStrategy(player int, infoSet cfr.InfoSet, actions []cfr.Action, probs []float64, weight float64, iter int) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	_, _, discountSum := pt.params.GetDiscountFactors(cfr.PlayerIter(iter))
	batch := new(leveldb.Batch)
	for i, a := range actions {
		key := entryKey(strategyPrefix, player, infoSet, a)
		putFloat(batch, key, discountSum*pt.get(key)+weight*probs[i])
	}

	return errors.Wrap(pt.db.Write(batch, pt.wOpts), "writing strategy")
}

// AverageStrategy returns the normalized accumulated strategy for the
// given player. It is uniform if nothing has been accumulated.
func (pt *PolicyTable) AverageStrategy(player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	strat := pt.StrategySum(player, infoSet, actions)
	total := 0.0
	for _, x := range strat {
		total += x
	}

	for i := range strat {
		if total > 0 {
			strat[i] /= total
		} else {
			strat[i] = 1.0 / float64(len(strat))
		}
	}

	return strat
}

// NumEntries returns the number of (infoset, action) entries with
// accumulated regret for the given player.
func (pt *PolicyTable) NumEntries(player int) int {
	iter := pt.db.NewIterator(util.BytesPrefix(tablePrefix(regretPrefix, player)), pt.rOpts)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}

	if err := iter.Error(); err != nil {
		panic(err)
	}

	return n
}
