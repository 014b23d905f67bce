package scope

import (
	"fmt"

	"mercator-hq/ldatranslate/pkg/voting/value"
)

// VariableNotFoundError is returned when a voting reads an unbound name.
type VariableNotFoundError struct {
	Name string
}

// Error returns the error message.
func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable not found: %s", e.Name)
}

// legacy pairs each well-known name with its alternate spelling, both ways.
var legacy = map[string]string{
	RR:             ReciprocalRank,
	NVoters:        NumberOfVoters,
	ReciprocalRank: RR,
	NumberOfVoters: NVoters,
}

// Lookup returns the value bound to name in ctx. Names with a legacy
// spelling resolve through either spelling.
func Lookup(ctx Context, name string) (value.Value, error) {
	if v, ok := ctx.Get(name); ok {
		return v, nil
	}
	if alt, ok := legacy[name]; ok {
		if v, ok := ctx.Get(alt); ok {
			return v, nil
		}
	}
	return value.Value{}, &VariableNotFoundError{Name: name}
}

// Number looks up name and coerces it to a float64.
func Number(ctx Context, name string) (float64, error) {
	v, err := Lookup(ctx, name)
	if err != nil {
		return 0, err
	}
	f, err := v.AsNumber()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}
