package aggregate

import (
	"errors"
	"math"
	"slices"
	"testing"
)

var mixed = []float64{1, 2, 10, 3, 4, 5, 6, 7, 8, 9}

func TestReduce(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		values []float64
		want   float64
	}{
		{"sum", SumOf, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 45},
		{"max", MaxOf, mixed, 10},
		{"min", MinOf, []float64{1, 2, -10, 3, 4}, -10},
		{"avg", AvgOf, mixed, 5.5},
		{"gavg", GAvgOf, mixed, 4.5287286881},
		{"single sum", SumOf, []float64{7}, 7},
		{"single max", MaxOf, []float64{7}, 7},
		{"gavg zero", GAvgOf, []float64{0, 4}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reduce(tt.kind, slices.Values(tt.values))
			if err != nil {
				t.Fatalf("Reduce() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Reduce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReduceFloat32(t *testing.T) {
	got, err := Reduce(SumOf, slices.Values([]float32{1.5, 2.5}))
	if err != nil || got != 4 {
		t.Errorf("Reduce(float32) = %v, %v", got, err)
	}
}

func TestNoValues(t *testing.T) {
	for _, name := range Kinds() {
		kind, _ := ParseKind(name)
		t.Run(name, func(t *testing.T) {
			_, err := Reduce(kind, slices.Values([]float64{}))
			if !errors.Is(err, ErrNoValues) {
				t.Errorf("Reduce(empty) error = %v, want ErrNoValues", err)
			}
		})
	}
}

func TestLimited(t *testing.T) {
	values := []float64{4, 5, 1, 2, 3, 6, 7, 8, 9}
	agg, err := NewLimited(SumOf, 3)
	if err != nil {
		t.Fatalf("NewLimited() error = %v", err)
	}

	asc, err := CalculateAsc(agg, slices.Values(values))
	if err != nil || asc != 6 {
		t.Errorf("CalculateAsc() = %v, %v, want 6", asc, err)
	}
	desc, err := CalculateDesc(agg, slices.Values(values))
	if err != nil || desc != 24 {
		t.Errorf("CalculateDesc() = %v, %v, want 24", desc, err)
	}
}

func TestLimitedFiltersNonFinite(t *testing.T) {
	values := []float64{math.NaN(), 1, math.Inf(1), 2, math.NaN()}
	agg, _ := NewLimited(MaxOf, 5)

	got, err := CalculateDesc(agg, slices.Values(values))
	if err != nil || got != 2 {
		t.Errorf("CalculateDesc() = %v, %v, want 2", got, err)
	}

	onlyNaN := []float64{math.NaN()}
	if _, err := CalculateDesc(agg, slices.Values(onlyNaN)); !errors.Is(err, ErrNoValues) {
		t.Errorf("CalculateDesc(NaN) error = %v, want ErrNoValues", err)
	}
}

func TestIncomparable(t *testing.T) {
	tests := []struct {
		name          string
		kind          Kind
		values        []float64
		candidate     float64
		cause         float64
		sentinel      error
		wantCandidNaN bool
	}{
		{"max first comparison", MaxOf, []float64{math.NaN(), 1}, 0, 0, ErrNoMaxFound, true},
		{"min first comparison", MinOf, []float64{1, math.NaN()}, 0, 0, ErrNoMinFound, true},
		{"max later comparison", MaxOf, []float64{1, 3, math.NaN()}, 3, 1, ErrNoMaxFound, false},
		{"min later comparison", MinOf, []float64{5, 2, 4, math.NaN(), 0}, 2, 4, ErrNoMinFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce(tt.kind, slices.Values(tt.values))
			var ie *IncomparableError
			if !errors.As(err, &ie) {
				t.Fatalf("Reduce() error = %v, want *IncomparableError", err)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error %v does not match %v", err, tt.sentinel)
			}
			if tt.wantCandidNaN {
				if !math.IsNaN(ie.Candidate) || !math.IsNaN(ie.Cause) {
					t.Errorf("candidate/cause = %v/%v, want NaN/NaN", ie.Candidate, ie.Cause)
				}
				return
			}
			if ie.Candidate != tt.candidate || ie.Cause != tt.cause {
				t.Errorf("candidate/cause = %v/%v, want %v/%v", ie.Candidate, ie.Cause, tt.candidate, tt.cause)
			}
		})
	}
}

func TestGAvgNegative(t *testing.T) {
	_, err := Reduce(GAvgOf, slices.Values([]float64{1, -2}))
	var de *DomainError
	if !errors.As(err, &de) || de.Value != -2 {
		t.Errorf("Reduce() error = %v, want *DomainError for -2", err)
	}
}

func TestNewLimitedRejectsZero(t *testing.T) {
	if _, err := NewLimited(SumOf, 0); err == nil {
		t.Error("NewLimited(0) should fail")
	}
}

func TestString(t *testing.T) {
	agg, _ := NewLimited(GAvgOf, 4)
	if got := agg.String(); got != "gAvgOf(4)" {
		t.Errorf("String() = %q", got)
	}
	if got := New(MinOf).String(); got != "minOf" {
		t.Errorf("String() = %q", got)
	}
	if k, ok := ParseKind("avgOf"); !ok || k != AvgOf {
		t.Error("ParseKind(avgOf) failed")
	}
	if _, ok := ParseKind("AvgOf"); ok {
		t.Error("ParseKind must be case-sensitive")
	}
}
