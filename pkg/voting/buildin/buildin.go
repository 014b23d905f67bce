// Package buildin holds the fixed table of named ranking formulas that can be
// referenced by name from any voting without being parsed.
package buildin

import (
	"fmt"
	"math"
	"slices"

	"mercator-hq/ldatranslate/pkg/voting/aggregate"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

// Voting identifies a build-in formula. Names are stable identifiers that
// appear in stored voting definitions.
type Voting uint8

const (
	OriginalScore Voting = iota
	Voters
	CombSum
	GCombSum
	CombSumTop
	CombSumPow2
	CombMax
	RR
	RRPow2
	CombSumRR
	CombSumRRPow2
	CombSumPow2RR
	CombSumPow2RRPow2
	ExpCombMnz
	WCombSum
	WCombSumG
	WGCombSum
	PCombSum
)

var names = [...]string{
	OriginalScore:     "OriginalScore",
	Voters:            "Voters",
	CombSum:           "CombSum",
	GCombSum:          "GCombSum",
	CombSumTop:        "CombSumTop",
	CombSumPow2:       "CombSumPow2",
	CombMax:           "CombMax",
	RR:                "RR",
	RRPow2:            "RRPow2",
	CombSumRR:         "CombSumRR",
	CombSumRRPow2:     "CombSumRRPow2",
	CombSumPow2RR:     "CombSumPow2RR",
	CombSumPow2RRPow2: "CombSumPow2RRPow2",
	ExpCombMnz:        "ExpCombMnz",
	WCombSum:          "WCombSum",
	WCombSumG:         "WCombSumG",
	WGCombSum:         "WGCombSum",
	PCombSum:          "PCombSum",
}

// String returns the name of v.
func (v Voting) String() string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("Voting(%d)", uint8(v))
}

// Parse resolves a build-in by its exact, case-sensitive name.
func Parse(name string) (Voting, bool) {
	for i, n := range names {
		if n == name {
			return Voting(i), true
		}
	}
	return 0, false
}

// IsBuildIn reports whether name is a build-in name.
func IsBuildIn(name string) bool {
	_, ok := Parse(name)
	return ok
}

// Names returns every build-in name.
func Names() []string {
	return slices.Clone(names[:])
}

// Execute evaluates the formula. Per-voter inputs (score, rr, importance) are
// read from the voter contexts, score_candidate and epsilon from global.
func (v Voting) Execute(global scope.Context, voters []scope.Context) (value.Value, error) {
	if v == Voters {
		return value.Int(int64(len(voters))), nil
	}
	f, err := v.calculate(global, voters)
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: %w", v, err)
	}
	return value.Float(f), nil
}

func (v Voting) calculate(global scope.Context, voters []scope.Context) (float64, error) {
	switch v {
	case OriginalScore:
		return scope.Number(global, scope.ScoreCandidate)
	case CombSum:
		return sumOver(voters, score)
	case GCombSum:
		g, err := reduceOver(aggregate.GAvgOf, voters, score)
		if err != nil {
			return 0, err
		}
		return g * float64(len(voters)), nil
	case CombSumTop:
		s, err := sumOver(voters, score)
		if err != nil {
			return 0, err
		}
		m, err := reduceOver(aggregate.MaxOf, voters, score)
		if err != nil {
			return 0, err
		}
		return s + m, nil
	case CombSumPow2:
		return sumOver(voters, pow2(score))
	case CombMax:
		return reduceOver(aggregate.MaxOf, voters, score)
	case RR:
		return sumOver(voters, rr)
	case RRPow2:
		return sumOver(voters, pow2(rr))
	case CombSumRR:
		return sumOver(voters, product(score, rr))
	case CombSumRRPow2:
		return sumOver(voters, product(score, pow2(rr)))
	case CombSumPow2RR:
		return sumOver(voters, product(pow2(score), rr))
	case CombSumPow2RRPow2:
		return sumOver(voters, product(pow2(score), pow2(rr)))
	case ExpCombMnz:
		return expCombMnz(voters)
	case WCombSum:
		return sumOver(voters, product(importance, score))
	case WCombSumG:
		w, err := sumOver(voters, product(importance, score))
		if err != nil {
			return 0, err
		}
		c, err := scope.Number(global, scope.ScoreCandidate)
		if err != nil {
			return 0, err
		}
		return w * c, nil
	case WGCombSum:
		g, err := reduceOver(aggregate.GAvgOf, voters, product(importance, score))
		if err != nil {
			return 0, err
		}
		return g * float64(len(voters)), nil
	case PCombSum:
		if len(voters) == 0 {
			return scope.Number(global, scope.Epsilon)
		}
		a, err := reduceOver(aggregate.AvgOf, voters, score)
		if err != nil {
			return 0, err
		}
		m, err := reduceOver(aggregate.MaxOf, voters, rr)
		if err != nil {
			return 0, err
		}
		return a + m, nil
	default:
		return 0, fmt.Errorf("unknown build-in %d", uint8(v))
	}
}

// term extracts one number from a voter context.
type term func(scope.Context) (float64, error)

func score(c scope.Context) (float64, error)      { return scope.Number(c, scope.Score) }
func rr(c scope.Context) (float64, error)         { return scope.Number(c, scope.RR) }
func importance(c scope.Context) (float64, error) { return scope.Number(c, scope.Importance) }

func pow2(t term) term {
	return func(c scope.Context) (float64, error) {
		x, err := t(c)
		return x * x, err
	}
}

func product(a, b term) term {
	return func(c scope.Context) (float64, error) {
		x, err := a(c)
		if err != nil {
			return 0, err
		}
		y, err := b(c)
		return x * y, err
	}
}

func collect(voters []scope.Context, t term) ([]float64, error) {
	out := make([]float64, 0, len(voters))
	for _, c := range voters {
		x, err := t(c)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func reduceOver(kind aggregate.Kind, voters []scope.Context, t term) (float64, error) {
	values, err := collect(voters, t)
	if err != nil {
		return 0, err
	}
	return aggregate.Reduce(kind, slices.Values(values))
}

func sumOver(voters []scope.Context, t term) (float64, error) {
	return reduceOver(aggregate.SumOf, voters, t)
}

func expCombMnz(voters []scope.Context) (float64, error) {
	scores, err := collect(voters, score)
	if err != nil {
		return 0, err
	}
	exps := make([]float64, len(scores))
	positive := 0
	for i, s := range scores {
		exps[i] = math.Exp(s)
		if s > 0 {
			positive++
		}
	}
	total, err := aggregate.Reduce(aggregate.SumOf, slices.Values(exps))
	if err != nil {
		return 0, err
	}
	return total * float64(positive), nil
}
