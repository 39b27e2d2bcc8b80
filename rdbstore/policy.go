package rdbstore

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/pkg/errors"
	rocksdb "github.com/tecbot/gorocksdb"

	cfr "github.com/timpalpant/go-simcfr"
)

const (
	regretPrefix   = 'r'
	strategyPrefix = 's'
)

// PolicyTable is a tabular policy that keeps all regrets and strategy sums
// on disk in a RocksDB database. PolicyTable implements cfr.Policy.
//
// It is functionally equivalent to a cfr.TablePolicy. In practice, it is significantly
// slower but will use constant amount of memory since all entries are kept on disk.
// Read errors are unrecoverable and cause a panic.
type PolicyTable struct {
	// mu serializes read-modify-write updates from concurrent workers.
	mu sync.Mutex

	params    Params
	discounts cfr.DiscountParams
	db        *rocksdb.DB
}

// New creates a new PolicyTable backed by a RocksDB database.
func New(params Params, discounts cfr.DiscountParams) (*PolicyTable, error) {
	db, err := params.open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", params.Path)
	}

	return &PolicyTable{
		params:    params,
		discounts: discounts,
		db:        db,
	}, nil
}

// Close implements io.Closer.
func (pt *PolicyTable) Close() error {
	pt.db.Close()
	return nil
}

func entryKey(kind byte, player int, infoSet cfr.InfoSet, action cfr.Action) []byte {
	return append([]byte{kind, byte(player)}, infoSet.Append(string(action)).Key()...)
}

func (pt *PolicyTable) get(key []byte) float64 {
	result, err := pt.db.Get(pt.params.ReadOptions, key)
	if err != nil {
		panic(err)
	}
	defer result.Free()

	if !result.Exists() {
		return 0
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(result.Data()))
}

func (pt *PolicyTable) lookup(kind byte, player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	result := make([]float64, len(actions))
	for i, a := range actions {
		result[i] = pt.get(entryKey(kind, player, infoSet, a))
	}

	return result
}

func encodeFloat(x float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(x))
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

	discountPos, discountNeg, _ := pt.discounts.GetDiscountFactors(cfr.PlayerIter(iter))
	wb := rocksdb.NewWriteBatch()
	defer wb.Destroy()
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
		if pt.discounts.UseRegretMatchingPlus && x < 0 {
			x = 0
		}

		wb.Put(key, encodeFloat(x))
	}

	return errors.Wrap(pt.db.Write(pt.params.WriteOptions, wb), "writing regrets")
}

// AddStrategy implements cfr.Policy.
func (pt *PolicyTable) AddStrategy(player int, infoSet cfr.InfoSet, actions []cfr.Action, probs []float64, weight float64, iter int) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	_, _, discountSum := pt.discounts.GetDiscountFactors(cfr.PlayerIter(iter))
	wb := rocksdb.NewWriteBatch()
	defer wb.Destroy()
	for i, a := range actions {
		key := entryKey(strategyPrefix, player, infoSet, a)
		wb.Put(key, encodeFloat(discountSum*pt.get(key)+weight*probs[i]))
	}

	return errors.Wrap(pt.db.Write(pt.params.WriteOptions, wb), "writing strategy")
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
