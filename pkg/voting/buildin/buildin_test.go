package buildin

import (
	"errors"
	"math"
	"testing"

	"mercator-hq/ldatranslate/pkg/voting/aggregate"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

func voter(score, rr, importance float64) scope.Context {
	return scope.New(
		scope.Var{Name: scope.Score, Value: value.Float(score)},
		scope.Var{Name: scope.RR, Value: value.Float(rr)},
		scope.Var{Name: scope.Importance, Value: value.Float(importance)},
	)
}

func fixture() (scope.Context, []scope.Context) {
	global := scope.New(
		scope.Var{Name: scope.ScoreCandidate, Value: value.Float(0.5)},
		scope.Var{Name: scope.Epsilon, Value: value.Float(0.001)},
	)
	return global, []scope.Context{
		voter(1, 1, 2),
		voter(2, 0.5, 1),
		voter(4, 0.25, 0.5),
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		voting Voting
		want   float64
	}{
		{OriginalScore, 0.5},
		{CombSum, 7},
		{GCombSum, 2 * 3},
		{CombSumTop, 7 + 4},
		{CombSumPow2, 1 + 4 + 16},
		{CombMax, 4},
		{RR, 1.75},
		{RRPow2, 1 + 0.25 + 0.0625},
		{CombSumRR, 1 + 1 + 1},
		{CombSumRRPow2, 1 + 0.5 + 0.25},
		{CombSumPow2RR, 1 + 2 + 4},
		{CombSumPow2RRPow2, 1 + 1 + 1},
		{ExpCombMnz, (math.E + math.Exp(2) + math.Exp(4)) * 3},
		{WCombSum, 2 + 2 + 2},
		{WCombSumG, 6 * 0.5},
		{WGCombSum, 2 * 3},
		{PCombSum, 7.0/3 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.voting.String(), func(t *testing.T) {
			global, voters := fixture()
			got, err := tt.voting.Execute(global, voters)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			f, err := got.AsFloat()
			if err != nil {
				t.Fatalf("result %v is not a float", got)
			}
			if math.Abs(f-tt.want) > 1e-9 {
				t.Errorf("Execute() = %v, want %v", f, tt.want)
			}
		})
	}
}

func TestVotersIsInt(t *testing.T) {
	global, voters := fixture()
	got, err := Voters.Execute(global, voters)
	if err != nil || !got.Equal(value.Int(3)) {
		t.Errorf("Voters = %v, %v", got, err)
	}
}

func TestPCombSumEpsilon(t *testing.T) {
	global, _ := fixture()
	got, err := PCombSum.Execute(global, nil)
	if err != nil || !got.Equal(value.Float(0.001)) {
		t.Errorf("PCombSum with no voters = %v, %v", got, err)
	}
}

func TestMissingVariable(t *testing.T) {
	global := scope.New()
	voters := []scope.Context{scope.New(scope.Var{Name: scope.Score, Value: value.Float(1)})}

	_, err := RR.Execute(global, voters)
	var nf *scope.VariableNotFoundError
	if !errors.As(err, &nf) || nf.Name != scope.RR {
		t.Errorf("RR error = %v, want variable not found rr", err)
	}

	_, err = OriginalScore.Execute(global, voters)
	if !errors.As(err, &nf) || nf.Name != scope.ScoreCandidate {
		t.Errorf("OriginalScore error = %v", err)
	}
}

func TestLegacyNames(t *testing.T) {
	voters := []scope.Context{scope.New(scope.Var{Name: scope.ReciprocalRank, Value: value.Float(0.5)})}
	got, err := RR.Execute(scope.New(), voters)
	if err != nil || !got.Equal(value.Float(0.5)) {
		t.Errorf("RR over reciprocal_rank = %v, %v", got, err)
	}
}

func TestNoVoters(t *testing.T) {
	_, err := CombSum.Execute(scope.New(), nil)
	if !errors.Is(err, aggregate.ErrNoValues) {
		t.Errorf("CombSum with no voters error = %v", err)
	}
}

func TestParse(t *testing.T) {
	for _, n := range Names() {
		v, ok := Parse(n)
		if !ok || v.String() != n {
			t.Errorf("Parse(%q) = %v, %v", n, v, ok)
		}
	}
	if IsBuildIn("combsum") {
		t.Error("build-in names are case-sensitive")
	}
}
