// Package token implements the ring's token algebra: a circular ordered
// domain with minimum/maximum sentinels, half-open wrapping ranges, and
// the bijection between ranges and interval-map keys (component A).
package token

import (
	"strconv"

	"github.com/devrev/pairdb/ringmeta/internal/ringerr"
)

// kind distinguishes the two sentinel values from ordinary tokens so
// comparisons don't need a magic out-of-band value.
type kind uint8

const (
	kindValue kind = iota
	kindMinimum
	kindMaximum
)

// Token is a point on the circular ordered domain, modeled the way
// Cassandra's Murmur3Partitioner represents ring positions: a signed
// 64-bit hash value, plus two out-of-band sentinels. The zero value is
// not a valid token; use Minimum, Maximum, or New/FromInt64. Token is
// comparable and safe to use directly as a map key.
type Token struct {
	k kind
	v int64
}

// New wraps a raw int64 hash value as an ordinary (non-sentinel) token.
func New(v int64) Token {
	return Token{k: kindValue, v: v}
}

// FromInt64 is an alias of New kept for readability at call sites that
// construct tokens from small literal values (spec §8 scenarios use
// token literals 10, 20, 30...).
func FromInt64(v int64) Token { return New(v) }

// Minimum returns the ring's minimum sentinel: smaller than every
// ordinary token.
func Minimum() Token { return Token{k: kindMinimum} }

// Maximum returns the ring's maximum sentinel ("infinity"): larger than
// every ordinary token.
func Maximum() Token { return Token{k: kindMaximum} }

// IsMinimum reports whether t is the minimum sentinel.
func (t Token) IsMinimum() bool { return t.k == kindMinimum }

// IsMaximum reports whether t is the maximum sentinel.
func (t Token) IsMaximum() bool { return t.k == kindMaximum }

// Int64 returns the raw value of an ordinary token. It panics if t is a
// sentinel; callers should guard with IsMinimum/IsMaximum first.
func (t Token) Int64() int64 {
	if t.k != kindValue {
		panic("token: Int64 called on a sentinel token")
	}
	return t.v
}

// Compare returns -1, 0, or 1 per the ordinary (non-wrapping) total
// order: Minimum < any value < Maximum.
func (t Token) Compare(other Token) int {
	if t.k == other.k && t.k != kindValue {
		return 0
	}
	if t.k == kindMinimum {
		return -1
	}
	if other.k == kindMinimum {
		return 1
	}
	if t.k == kindMaximum {
		return 1
	}
	if other.k == kindMaximum {
		return -1
	}
	switch {
	case t.v < other.v:
		return -1
	case t.v > other.v:
		return 1
	default:
		return 0
	}
}

// Equal reports whether t and other compare equal.
func (t Token) Equal(other Token) bool { return t == other }

// Less reports whether t sorts strictly before other.
func (t Token) Less(other Token) bool { return t.Compare(other) < 0 }

// String renders the token for logs and error messages.
func (t Token) String() string {
	switch t.k {
	case kindMinimum:
		return "min"
	case kindMaximum:
		return "max"
	default:
		return strconv.FormatInt(t.v, 10)
	}
}

// Sort sorts tokens ascending in place using the ordinary total order.
func Sort(tokens []Token) {
	sortSlice(tokens)
}

func sortSlice(tokens []Token) {
	// insertion sort is adequate here: ring sizes are node counts, not
	// key counts, and this keeps the dependency surface to stdlib for a
	// leaf utility with no ecosystem equivalent worth reaching for.
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0 && tokens[j].Less(tokens[j-1]); j-- {
			tokens[j], tokens[j-1] = tokens[j-1], tokens[j]
		}
	}
}

// Predecessor returns the token immediately before t in sorted (which
// must already be strictly ascending), wrapping from the first element
// to the last. Fails with ringerr.UnknownToken if t is not present in
// sorted.
func Predecessor(sorted []Token, t Token) (Token, error) {
	for i, cur := range sorted {
		if cur.Equal(t) {
			if i == 0 {
				return sorted[len(sorted)-1], nil
			}
			return sorted[i-1], nil
		}
	}
	return Token{}, ringerr.New("Predecessor", ringerr.UnknownToken)
}

// FirstTokenIndex returns the smallest index i with sorted[i] >= start,
// or 0 if no such index exists (wrap to the beginning). Fails with
// ringerr.EmptyRing if sorted has no elements.
func FirstTokenIndex(sorted []Token, start Token) (int, error) {
	if len(sorted) == 0 {
		return 0, ringerr.New("FirstTokenIndex", ringerr.EmptyRing)
	}
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid].Less(start) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == len(sorted) {
		return 0, nil
	}
	return lo, nil
}
