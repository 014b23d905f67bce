package interpreter

import (
	"cmp"
	"fmt"
	"slices"

	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

// RankKey extracts the sort key of a voter. Lower ranks are better.
type RankKey func(voter scope.Context) (int64, error)

// RankOf reads the integer rank variable of a voter.
func RankOf(voter scope.Context) (int64, error) {
	v, err := scope.Lookup(voter, scope.Rank)
	if err != nil {
		return 0, err
	}
	r, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", scope.Rank, err)
	}
	return r, nil
}

// Limited narrows the voters to the Limit best ranked ones before
// delegating to Inner.
type Limited[T Evaluator] struct {
	Limit   int
	Inner   T
	RankKey RankKey
}

// NewLimited wraps inner, ranking voters by RankOf. limit must be positive.
func NewLimited[T Evaluator](limit int, inner T) (*Limited[T], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("voter limit must be positive, got %d", limit)
	}
	return &Limited[T]{Limit: limit, Inner: inner, RankKey: RankOf}, nil
}

// ExecuteWithVoters implements Evaluator. When there are more voters than
// the limit, the slice is stably sorted in place by rank and truncated;
// otherwise it is passed through untouched. The number of voters used is
// bound to n_voters in the global context.
func (l *Limited[T]) ExecuteWithVoters(global scope.Context, voters []scope.Context) (value.Value, []scope.Context, error) {
	if len(voters) > l.Limit {
		if err := l.sort(voters); err != nil {
			return value.Value{}, voters, err
		}
		voters = voters[:l.Limit]
	}
	global.Set(scope.NVoters, value.Int(int64(len(voters))))
	return l.Inner.ExecuteWithVoters(global, voters)
}

func (l *Limited[T]) sort(voters []scope.Context) error {
	key := l.RankKey
	if key == nil {
		key = RankOf
	}
	type ranked struct {
		rank  int64
		voter scope.Context
	}
	pairs := make([]ranked, len(voters))
	for i, v := range voters {
		r, err := key(v)
		if err != nil {
			return fmt.Errorf("rank of voter %d: %w", i, err)
		}
		pairs[i] = ranked{rank: r, voter: v}
	}
	slices.SortStableFunc(pairs, func(a, b ranked) int {
		return cmp.Compare(a.rank, b.rank)
	})
	for i, p := range pairs {
		voters[i] = p.voter
	}
	return nil
}
