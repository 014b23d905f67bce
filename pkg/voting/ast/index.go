package ast

import (
	"strconv"

	"mercator-hq/ldatranslate/pkg/voting/value"
)

// RangeKind is the shape of an IndexOrRange.
type RangeKind uint8

const (
	Index            RangeKind = iota // a
	Range                             // a..b
	RangeTo                           // ..b
	RangeFrom                         // a..
	RangeInclusive                    // a..=b
	RangeToInclusive                  // ..=b
	RangeFull                         // ..
)

// IndexOrRange selects one element or a contiguous sub-tuple.
// Bounds are zero based; End is exclusive unless the kind is inclusive.
type IndexOrRange struct {
	Kind  RangeKind
	Start int
	End   int
}

// Get applies r to items. A single index yields the element itself, every
// range shape yields a Tuple. The boolean is false when r is out of bounds.
func (r IndexOrRange) Get(items []value.Value) (value.Value, bool) {
	n := len(items)
	if r.Kind == Index {
		if r.Start < 0 || r.Start >= n {
			return value.Value{}, false
		}
		return items[r.Start], true
	}
	lo, hi := 0, n
	switch r.Kind {
	case Range:
		lo, hi = r.Start, r.End
	case RangeTo:
		hi = r.End
	case RangeFrom:
		lo = r.Start
	case RangeInclusive:
		lo, hi = r.Start, r.End+1
	case RangeToInclusive:
		hi = r.End + 1
	}
	if lo < 0 || hi > n || lo > hi {
		return value.Value{}, false
	}
	return value.Tuple(items[lo:hi]...), true
}

// String renders r as written between brackets.
func (r IndexOrRange) String() string {
	s, e := strconv.Itoa(r.Start), strconv.Itoa(r.End)
	switch r.Kind {
	case Index:
		return s
	case Range:
		return s + ".." + e
	case RangeTo:
		return ".." + e
	case RangeFrom:
		return s + ".."
	case RangeInclusive:
		return s + "..=" + e
	case RangeToInclusive:
		return "..=" + e
	default:
		return ".."
	}
}
