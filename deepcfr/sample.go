package deepcfr

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
)

// Sample is a single training example collected during traversal:
// one target per offered action at an infoset, plus the node value.
type Sample struct {
	InfoSet cfr.InfoSet
	Actions []cfr.Action
	Targets []float64
	Weight  float64
	Value   float64
}

// NewSample returns a Sample holding copies of the given slices.
func NewSample(infoSet cfr.InfoSet, actions []cfr.Action, targets []float64, weight, value float64) Sample {
	s := Sample{
		InfoSet: make(cfr.InfoSet, len(infoSet)),
		Actions: make([]cfr.Action, len(actions)),
		Targets: make([]float64, len(targets)),
		Weight:  weight,
		Value:   value,
	}

	copy(s.InfoSet, infoSet)
	copy(s.Actions, actions)
	copy(s.Targets, targets)
	return s
}

func actionTokens(actions []cfr.Action) cfr.InfoSet {
	tokens := make(cfr.InfoSet, len(actions))
	for i, a := range actions {
		tokens[i] = string(a)
	}

	return tokens
}

// MarshalBinary implements encoding.BinaryMarshaler.
//
// Layout: the infoset and actions, each length-prefixed, followed by the
// targets, weight and value as little-endian float64s. The number of
// targets is stored last so that it can be read first when decoding.
func (s Sample) MarshalBinary() ([]byte, error) {
	isBuf, err := s.InfoSet.MarshalBinary()
	if err != nil {
		return nil, err
	}

	actBuf, err := actionTokens(s.Actions).MarshalBinary()
	if err != nil {
		return nil, err
	}

	nBytes := 8*(len(s.Targets)+2) + 4
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(isBuf)+len(actBuf)+nBytes)
	buf = binary.AppendUvarint(buf, uint64(len(isBuf)))
	buf = append(buf, isBuf...)
	buf = binary.AppendUvarint(buf, uint64(len(actBuf)))
	buf = append(buf, actBuf...)

	for _, x := range s.Targets {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	}

	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Weight))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Value))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Targets)))
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Sample) UnmarshalBinary(buf []byte) error {
	if len(buf) < 4 {
		return errors.New("sample too short")
	}

	nTargets := int(binary.LittleEndian.Uint32(buf[len(buf)-4:]))
	nBytes := 8*(nTargets+2) + 4
	if len(buf) < nBytes {
		return errors.Errorf("sample too short for %d targets", nTargets)
	}

	head, tail := buf[:len(buf)-nBytes], buf[len(buf)-nBytes:]

	isBuf, head, err := readPrefixed(head)
	if err != nil {
		return errors.Wrap(err, "decoding infoset")
	}

	actBuf, head, err := readPrefixed(head)
	if err != nil {
		return errors.Wrap(err, "decoding actions")
	}

	if len(head) != 0 {
		return errors.Errorf("%d trailing bytes after actions", len(head))
	}

	var infoSet, actions cfr.InfoSet
	if err := infoSet.UnmarshalBinary(isBuf); err != nil {
		return err
	}

	if err := actions.UnmarshalBinary(actBuf); err != nil {
		return err
	}

	s.InfoSet = infoSet
	s.Actions = make([]cfr.Action, len(actions))
	for i, a := range actions {
		s.Actions[i] = cfr.Action(a)
	}

	s.Targets = make([]float64, nTargets)
	for i := range s.Targets {
		s.Targets[i] = math.Float64frombits(binary.LittleEndian.Uint64(tail[8*i:]))
	}

	tail = tail[8*nTargets:]
	s.Weight = math.Float64frombits(binary.LittleEndian.Uint64(tail))
	s.Value = math.Float64frombits(binary.LittleEndian.Uint64(tail[8:]))
	return nil
}

func readPrefixed(buf []byte) (field, rest []byte, err error) {
	n, m := binary.Uvarint(buf)
	if m <= 0 || uint64(len(buf)-m) < n {
		return nil, nil, errors.New("corrupt length prefix")
	}

	buf = buf[m:]
	return buf[:n], buf[n:], nil
}
