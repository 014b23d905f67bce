// Package aggregate implements the reducers used by aggregate operations and
// build-in votings: sum, max, min, arithmetic mean and geometric mean, with an
// optional top-k or bottom-k pre-filter.
package aggregate

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"strconv"

	"golang.org/x/exp/constraints"
)

// Kind selects the reducer of an Aggregation.
type Kind uint8

const (
	SumOf Kind = iota
	MaxOf
	MinOf
	AvgOf
	GAvgOf
)

var kindNames = [...]string{
	SumOf:  "sumOf",
	MaxOf:  "maxOf",
	MinOf:  "minOf",
	AvgOf:  "avgOf",
	GAvgOf: "gAvgOf",
}

// String returns the keyword used for k in voting source.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind resolves a reducer keyword. Matching is case-sensitive.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Kinds returns every reducer keyword.
func Kinds() []string {
	return slices.Clone(kindNames[:])
}

// Aggregation is a reducer with an optional limit.
// A zero Limit means the aggregation is unlimited.
type Aggregation struct {
	Kind  Kind
	Limit int
}

// New returns an unlimited aggregation.
func New(kind Kind) Aggregation {
	return Aggregation{Kind: kind}
}

// NewLimited returns an aggregation over at most limit values.
func NewLimited(kind Kind, limit int) (Aggregation, error) {
	if limit <= 0 {
		return Aggregation{}, &LimitError{Limit: limit}
	}
	return Aggregation{Kind: kind, Limit: limit}, nil
}

// Limited reports whether a is restricted to the first Limit values.
func (a Aggregation) Limited() bool { return a.Limit > 0 }

// String renders a in its canonical source form, e.g. "sumOf(3)".
func (a Aggregation) String() string {
	if a.Limit > 0 {
		return fmt.Sprintf("%s(%d)", a.Kind, a.Limit)
	}
	return a.Kind.String()
}

// CalculateAsc reduces seq. A limited aggregation keeps the Limit smallest
// finite values.
func CalculateAsc[F constraints.Float](a Aggregation, seq iter.Seq[F]) (F, error) {
	if a.Limit > 0 {
		values := finite(seq)
		slices.Sort(values)
		return Reduce(a.Kind, slices.Values(truncate(values, a.Limit)))
	}
	return Reduce(a.Kind, seq)
}

// CalculateDesc reduces seq. A limited aggregation keeps the Limit largest
// finite values.
func CalculateDesc[F constraints.Float](a Aggregation, seq iter.Seq[F]) (F, error) {
	if a.Limit > 0 {
		values := finite(seq)
		slices.Sort(values)
		slices.Reverse(values)
		return Reduce(a.Kind, slices.Values(truncate(values, a.Limit)))
	}
	return Reduce(a.Kind, seq)
}

// Reduce applies the reducer selected by kind to every value of seq.
func Reduce[F constraints.Float](kind Kind, seq iter.Seq[F]) (F, error) {
	switch kind {
	case SumOf:
		return sum(seq)
	case MaxOf:
		return extremum(seq, MaxOf)
	case MinOf:
		return extremum(seq, MinOf)
	case AvgOf:
		return avg(seq)
	case GAvgOf:
		return gavg(seq)
	default:
		return 0, fmt.Errorf("unknown aggregation kind %d", kind)
	}
}

func finite[F constraints.Float](seq iter.Seq[F]) []F {
	var out []F
	for v := range seq {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func truncate[F any](values []F, limit int) []F {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}

func sum[F constraints.Float](seq iter.Seq[F]) (F, error) {
	var (
		total F
		n     int
	)
	for v := range seq {
		if n == 0 {
			total = v
		} else {
			total += v
		}
		n++
	}
	if n == 0 {
		return 0, ErrNoValues
	}
	return total, nil
}

func avg[F constraints.Float](seq iter.Seq[F]) (F, error) {
	var (
		total F
		n     int
	)
	for v := range seq {
		total += v
		n++
	}
	if n == 0 {
		return 0, ErrNoValues
	}
	return total / F(n), nil
}

// gavg computes exp(mean(ln x)). A zero input yields zero; negative inputs
// are outside the domain of the geometric mean and are rejected.
func gavg[F constraints.Float](seq iter.Seq[F]) (F, error) {
	var (
		logs float64
		n    int
	)
	for v := range seq {
		if v < 0 {
			return 0, &DomainError{Value: float64(v)}
		}
		logs += math.Log(float64(v))
		n++
	}
	if n == 0 {
		return 0, ErrNoValues
	}
	return F(math.Exp(logs / float64(n))), nil
}

// extremum scans seq keeping the larger (MaxOf) or smaller (MinOf) value.
// The scan fails as soon as two values cannot be ordered; the error reports
// the last pair that could be.
func extremum[F constraints.Float](seq iter.Seq[F], kind Kind) (F, error) {
	var (
		best         F
		n            int
		candidate    = F(math.NaN())
		cause        = F(math.NaN())
		incomparable bool
	)
	for v := range seq {
		n++
		if n == 1 {
			best = v
			continue
		}
		if isNaN(best) || isNaN(v) {
			incomparable = true
			break
		}
		winner, loser := best, v
		if (kind == MaxOf && v > best) || (kind == MinOf && v < best) {
			winner, loser = v, best
		}
		best, candidate, cause = winner, winner, loser
	}
	if n == 0 {
		return 0, ErrNoValues
	}
	if incomparable {
		return 0, &IncomparableError{
			Kind:      kind,
			Candidate: float64(candidate),
			Cause:     float64(cause),
		}
	}
	return best, nil
}

func isNaN[F constraints.Float](v F) bool {
	return v != v
}
