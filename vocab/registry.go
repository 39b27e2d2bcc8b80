// Package vocab assigns stable, sequential integer ids to the string
// tokens that make up infosets and action labels, so that a model's
// input encoding is the same on every worker and across restarts.
package vocab

import (
	"encoding/gob"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps (kind, token) pairs to sequential ids, one sequence per
// kind. It is safe for concurrent use.
type Registry struct {
	mx    sync.RWMutex
	kinds map[string]map[string]int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]map[string]int)}
}

// ID returns the id of token within kind, assigning the next id in
// sequence if the token has not been seen.
func (r *Registry) ID(kind, token string) int {
	r.mx.RLock()
	id, ok := r.kinds[kind][token]
	r.mx.RUnlock()
	if ok {
		return id
	}

	r.mx.Lock()
	defer r.mx.Unlock()
	ids, ok := r.kinds[kind]
	if !ok {
		ids = make(map[string]int)
		r.kinds[kind] = ids
	}

	if id, ok := ids[token]; ok {
		return id
	}

	id = len(ids)
	ids[token] = id
	return id
}

// Lookup returns the id of token within kind without assigning one.
func (r *Registry) Lookup(kind, token string) (int, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	id, ok := r.kinds[kind][token]
	return id, ok
}

// Encode returns the ids of every token within kind.
func (r *Registry) Encode(kind string, tokens []string) []int {
	result := make([]int, len(tokens))
	for i, tok := range tokens {
		result[i] = r.ID(kind, tok)
	}

	return result
}

// Size returns the number of ids assigned within kind.
func (r *Registry) Size(kind string) int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.kinds[kind])
}

// Reset forgets every assigned id.
func (r *Registry) Reset() {
	r.mx.Lock()
	r.kinds = make(map[string]map[string]int)
	r.mx.Unlock()
}

// MarshalTo writes the registry to w.
func (r *Registry) MarshalTo(w io.Writer) error {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return gob.NewEncoder(w).Encode(r.kinds)
}

// Load reads a registry written with MarshalTo.
func Load(rd io.Reader) (*Registry, error) {
	kinds := make(map[string]map[string]int)
	if err := gob.NewDecoder(rd).Decode(&kinds); err != nil {
		return nil, errors.Wrap(err, "decoding registry")
	}

	return &Registry{kinds: kinds}, nil
}
