package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	verrors "mercator-hq/ldatranslate/pkg/voting/errors"
	"mercator-hq/ldatranslate/pkg/voting/interpreter"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

const base = `declare Base { aggregate(let s = sumOf): score }`

func TestRegisterAndGet(t *testing.T) {
	r := New()
	if err := r.Register(base); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	fn, ok := r.Get("Base")
	if !ok || fn == nil {
		t.Fatal("Get(Base) not found")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegisterAtAliases(t *testing.T) {
	r := New()
	if err := r.RegisterAt("base_alias", base); err != nil {
		t.Fatalf("RegisterAt() error = %v", err)
	}
	a, _ := r.Get("Base")
	b, _ := r.Get("base_alias")
	if a == nil || a != b {
		t.Error("both names must share one function instance")
	}
	if got := r.Names(); !slices.Equal(got, []string{"Base", "base_alias"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestRegisterReferencesEarlierEntries(t *testing.T) {
	r := New()
	if err := r.Register(base); err != nil {
		t.Fatalf("Register(base) error = %v", err)
	}
	err := r.Register(`declare Doubled {
		execute(let b = Base);
		global: b * 2
	}`)
	if err != nil {
		t.Fatalf("Register(Doubled) error = %v", err)
	}

	m, ok := r.Lookup("Doubled")
	if !ok || m.Kind() != interpreter.MethodRegistered {
		t.Fatalf("Lookup(Doubled) = %v, %v", m, ok)
	}
	voters := []scope.Context{
		scope.New(scope.Var{Name: "score", Value: value.Float(1)}),
		scope.New(scope.Var{Name: "score", Value: value.Float(2)}),
	}
	got, err := m.Execute(scope.New(), voters)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !got.Equal(value.Float(6)) {
		t.Errorf("Execute() = %v, want 6.0", got)
	}

	if m, ok := r.Lookup("CombSum"); !ok || m.Kind() != interpreter.MethodBuildIn {
		t.Errorf("Lookup(CombSum) = %v, %v", m, ok)
	}
	if _, ok := r.Lookup("Missing"); ok {
		t.Error("Lookup(Missing) should fail")
	}
}

func TestRegistrationExclusivity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"build-in reference", "CombSum", ErrBuildInNotRegistrable},
		{"declaration named like a build-in", "declare CombSum { global: 1 }", ErrBuildInNotRegistrable},
		{"existing name", "Base", ErrAlreadyRegistered},
		{"redeclared name", "declare Base { global: 1 }", ErrAlreadyRegistered},
		{"unnamed function", "global: 1", ErrMissingDeclarationName},
		{"limited build-in", "CombSum(2)", ErrLimitedNotRegistrable},
		{"limited registered", "Base(2)", ErrLimitedNotRegistrable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			if err := r.Register(base); err != nil {
				t.Fatalf("Register(base) error = %v", err)
			}
			before, version := r.Names(), r.Version()

			err := r.Register(tt.text)
			if !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
			var re *RegistrationError
			if !errors.As(err, &re) || re.Operation != "register" {
				t.Errorf("error %v is not a register RegistrationError", err)
			}

			err = r.RegisterAt("fresh", tt.text)
			if !errors.Is(err, tt.want) {
				t.Errorf("RegisterAt() error = %v, want %v", err, tt.want)
			}

			if !slices.Equal(r.Names(), before) || r.Version() != version {
				t.Errorf("registry changed after failed registration: %v", r.Names())
			}
		})
	}
}

func TestRegisterAtConflicts(t *testing.T) {
	r := New()
	if err := r.Register(base); err != nil {
		t.Fatal(err)
	}

	// Alias taken, declared name free: nothing may be bound.
	err := r.RegisterAt("Base", "declare Other { global: 1 }")
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("RegisterAt() error = %v, want ErrAlreadyRegistered", err)
	}
	if _, ok := r.Get("Other"); ok {
		t.Error("Other must not be bound when the alias is taken")
	}

	if err := r.RegisterAt("RR", "declare Other { global: 1 }"); !errors.Is(err, ErrBuildInNotRegistrable) {
		t.Errorf("RegisterAt(RR) error = %v, want ErrBuildInNotRegistrable", err)
	}
	for _, bad := range []string{"", "1abc", "has space", "let"} {
		if err := r.RegisterAt(bad, "declare Other { global: 1 }"); !errors.Is(err, ErrInvalidName) {
			t.Errorf("RegisterAt(%q) error = %v, want ErrInvalidName", bad, err)
		}
	}
	if err := r.RegisterAt("Same", "declare Same { global: 1 }"); err != nil {
		t.Errorf("RegisterAt with identical names error = %v", err)
	}
}

func TestParseErrorsSurface(t *testing.T) {
	r := New()
	err := r.Register("declare Broken { global: }")
	var pe *verrors.Error
	if !errors.As(err, &pe) {
		t.Errorf("Register() error = %v, want parse error", err)
	}
	if r.Len() != 0 {
		t.Error("registry changed after parse error")
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	if err := r.Register(base); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- r.Register(fmt.Sprintf("declare V%d { execute(let b = Base); global: b }", i))
		}()
		go func() {
			defer wg.Done()
			if _, ok := r.Get("Base"); !ok {
				errs <- errors.New("Base disappeared")
				return
			}
			_ = r.Names()
			errs <- nil
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
	if r.Len() != 11 {
		t.Errorf("Len() = %d, want 11", r.Len())
	}
}
