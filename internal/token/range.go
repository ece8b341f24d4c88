package token

// Range is a half-open (by default) wrapping interval on the ring: when
// Start.Compare(End) > 0 it covers (Start, max] ∪ [min, End] (adjusted
// for the inclusivity flags). A missing Start is Minimum; a missing End
// is Maximum.
type Range struct {
	Start          Token
	End            Token
	StartInclusive bool
	EndInclusive   bool
}

// NewRange builds the conventional half-open wrapping range (start,
// end], the shape primary ranges and most pending-range contributions
// use.
func NewRange(start, end Token) Range {
	return Range{Start: start, End: end, StartInclusive: false, EndInclusive: true}
}

// Wraps reports whether the range crosses the minimum sentinel, i.e.
// Start sorts after End under the ordinary (non-wrapping) order.
func (r Range) Wraps() bool {
	return r.Start.Compare(r.End) > 0
}

// Contains reports whether t falls within r, honoring wraparound and
// the inclusivity flags on each bound.
func (r Range) Contains(t Token) bool {
	if !r.Wraps() {
		return r.aboveStart(t) && r.belowEnd(t)
	}
	return r.aboveStart(t) || r.belowEnd(t)
}

func (r Range) aboveStart(t Token) bool {
	cmp := t.Compare(r.Start)
	if r.StartInclusive {
		return cmp >= 0
	}
	return cmp > 0
}

func (r Range) belowEnd(t Token) bool {
	cmp := t.Compare(r.End)
	if r.EndInclusive {
		return cmp <= 0
	}
	return cmp < 0
}

// IntervalKey is the interval-map encoding of a Range: the same
// (start, end, inclusivity) tuple with sentinels normalized, used as
// the key type the pending-range interval map is built from.
type IntervalKey struct {
	Start          Token
	End            Token
	StartInclusive bool
	EndInclusive   bool
}

// RangeToInterval converts a Range to its IntervalKey encoding,
// defaulting a sentinel-less start to Minimum and a sentinel-less end
// to Maximum (they already carry sentinels when unspecified by the
// caller, so this is effectively an identity re-tag).
func RangeToInterval(r Range) IntervalKey {
	return IntervalKey{
		Start:          r.Start,
		End:            r.End,
		StartInclusive: r.StartInclusive,
		EndInclusive:   r.EndInclusive,
	}
}

// IntervalToRange is the inverse of RangeToInterval.
func IntervalToRange(k IntervalKey) Range {
	return Range{
		Start:          k.Start,
		End:            k.End,
		StartInclusive: k.StartInclusive,
		EndInclusive:   k.EndInclusive,
	}
}

// UnwrapAtMinimum splits a wrapping range into at most two non-wrapping
// sub-ranges by cutting it at the minimum sentinel: (start, max] and
// [min, end]. A non-wrapping range is returned unchanged as a single
// element slice.
func UnwrapAtMinimum(r Range) []Range {
	if !r.Wraps() {
		return []Range{r}
	}
	return []Range{
		{Start: r.Start, End: Maximum(), StartInclusive: r.StartInclusive, EndInclusive: true},
		{Start: Minimum(), End: r.End, StartInclusive: true, EndInclusive: r.EndInclusive},
	}
}

// RingIterator walks every element of a sorted token slice exactly
// once, starting at the first index whose value is >= start and
// wrapping through the end of the slice back to the beginning. It is
// restartable by constructing a fresh iterator from the same start.
type RingIterator struct {
	sorted  []Token
	origin  int
	visited int
}

// NewRingIterator builds a RingIterator over sorted starting from the
// position FirstTokenIndex(sorted, start) would return. Fails with
// ringerr.EmptyRing if sorted is empty (via FirstTokenIndex).
func NewRingIterator(sorted []Token, start Token) (*RingIterator, error) {
	idx, err := FirstTokenIndex(sorted, start)
	if err != nil {
		return nil, err
	}
	return &RingIterator{sorted: sorted, origin: idx}, nil
}

// Next returns the next token in ring order and true, or the zero
// Token and false once every element has been visited exactly once.
func (it *RingIterator) Next() (Token, bool) {
	if it.visited >= len(it.sorted) {
		return Token{}, false
	}
	idx := (it.origin + it.visited) % len(it.sorted)
	it.visited++
	return it.sorted[idx], true
}
