// Package bucketoracle implements the Bucket Oracle (spec §4.1): for a
// (bucket-id, block) pair, returns the current byte capacity allocated to
// that bucket, used to scale storage gas.
//
// Grounded on the shape of the teacher's consumed-interface pattern
// (core/vm/evm_arbitrum.go's TxProcessingHook is a small externally-supplied
// interface the engine calls through without owning an implementation) and on
// arbitrum/multigas/constraint.go's per-key map idiom for the reference
// in-memory implementation below.
package bucketoracle

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
)

// ErrCapacityLookupFailed is returned when the oracle cannot resolve a
// bucket's capacity; the caller must propagate this as a FatalExternalError
// halt (spec §4.1 Failure).
var ErrCapacityLookupFailed = errors.New("bucket oracle: capacity lookup failed")

// BucketID identifies a bucket by the hash of either (address) or
// (address, storage-slot-key); the two namespaces share the id space because
// callers always know which they mean (spec §4.1).
type BucketID common.Hash

// AccountBucket derives the BucketID for an account-level bucket.
func AccountBucket(addr common.Address) BucketID {
	return BucketID(crypto.Keccak256Hash(addr[:]))
}

// StorageBucket derives the BucketID for a (address, slot) bucket.
func StorageBucket(addr common.Address, slot common.Hash) BucketID {
	return BucketID(crypto.Keccak256Hash(addr[:], slot[:]))
}

// Oracle is the external collaborator consulted for storage-gas scaling.
// Implementations are pure with respect to the block being executed
// (spec §4.1 Semantics).
type Oracle interface {
	CapacityOf(id BucketID) (uint64, error)
}

// Multiplier computes capacity/min_bucket_size (integer division, >= 1 when
// capacity >= MinBucketSize), per spec §4.1.
func Multiplier(capacity uint64) uint64 {
	m := capacity / megaparams.MinBucketSize
	if m == 0 {
		return 1
	}
	return m
}

// LookupMultiplier resolves a bucket's capacity and converts it to a
// multiplier in one call, wrapping lookup failures per spec §4.1 Failure.
func LookupMultiplier(o Oracle, id BucketID) (uint64, error) {
	capacity, err := o.CapacityOf(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCapacityLookupFailed, err)
	}
	return Multiplier(capacity), nil
}

// StaticOracle is a fixed in-memory capacity table, useful for tests and the
// CLI where no live bucket-sizing service is wired up.
type StaticOracle struct {
	capacities map[BucketID]uint64
	fallback   uint64
}

// NewStaticOracle returns a StaticOracle that answers `fallback` capacity for
// any bucket not present in the override map.
func NewStaticOracle(fallback uint64) *StaticOracle {
	return &StaticOracle{capacities: make(map[BucketID]uint64), fallback: fallback}
}

// SetCapacity overrides the capacity for a specific bucket.
func (s *StaticOracle) SetCapacity(id BucketID, capacity uint64) {
	s.capacities[id] = capacity
}

// CapacityOf implements Oracle.
func (s *StaticOracle) CapacityOf(id BucketID) (uint64, error) {
	if c, ok := s.capacities[id]; ok {
		return c, nil
	}
	return s.fallback, nil
}
