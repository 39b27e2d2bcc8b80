package cfr

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// InfoSet is the ordered, append-only sequence of tokens describing what
// one player has observed so far.
type InfoSet []string

// Key returns a string identifying the content of this InfoSet.
// Each token is length-prefixed, so distinct token sequences never
// share a key (e.g. ["ab", "c"] and ["a", "bc"]).
func (is InfoSet) Key() string {
	buf, _ := is.MarshalBinary()
	return string(buf)
}

// Append returns a new InfoSet with the given tokens appended.
// The receiver is never modified.
func (is InfoSet) Append(tokens ...string) InfoSet {
	result := make(InfoSet, len(is), len(is)+len(tokens))
	copy(result, is)
	return append(result, tokens...)
}

func (is InfoSet) String() string {
	return strings.Join(is, " ")
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (is InfoSet) MarshalBinary() ([]byte, error) {
	n := 0
	for _, tok := range is {
		n += binary.MaxVarintLen64 + len(tok)
	}

	buf := make([]byte, 0, n)
	var tmp [binary.MaxVarintLen64]byte
	for _, tok := range is {
		m := binary.PutUvarint(tmp[:], uint64(len(tok)))
		buf = append(buf, tmp[:m]...)
		buf = append(buf, tok...)
	}

	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (is *InfoSet) UnmarshalBinary(buf []byte) error {
	var result InfoSet
	for len(buf) > 0 {
		n, m := binary.Uvarint(buf)
		if m <= 0 || uint64(len(buf)-m) < n {
			return errors.Errorf("corrupt infoset encoding at token %d", len(result))
		}

		buf = buf[m:]
		result = append(result, string(buf[:n]))
		buf = buf[n:]
	}

	*is = result
	return nil
}
