// Package idgen provides ready-made IdGenerator implementations for the
// CRDT types in this module. The default, UUID, follows the common pattern
// seen across the retrieval corpus's CRDT implementations of identifying
// each operation by a fresh random identifier rather than a centrally
// coordinated counter, so independent replicas can generate ids without
// coordination.
package idgen

import "github.com/google/uuid"

// UUID returns a generator producing a fresh random UUID string on every
// call, suitable wherever this module's packages accept an
// IdGenerator[string] (linear.IdGenerator, coalesced.IdGenerator, or the
// plain func() (string, error) the Register constructors expect).
func UUID() func() (string, error) {
	return func() (string, error) {
		return uuid.NewString(), nil
	}
}
