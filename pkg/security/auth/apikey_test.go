package auth

import (
	"errors"
	"testing"

	"mercator-hq/ldatranslate/pkg/config"
)

func TestAPIKeyValidator_Validate(t *testing.T) {
	validator := NewAPIKeyValidator([]*APIKeyInfo{
		{ID: "ci", Key: "sk-ci", Scopes: []Scope{ScopeEvaluate}, Enabled: true},
		{ID: "old", Key: "sk-old", Scopes: []Scope{ScopeAll}, Enabled: false},
	})

	tests := []struct {
		name    string
		key     string
		wantID  string
		wantErr error
	}{
		{"valid key", "sk-ci", "ci", nil},
		{"disabled key", "sk-old", "", ErrKeyDisabled},
		{"unknown key", "sk-nope", "", ErrInvalidKey},
		{"empty key", "", "", ErrMissingKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := validator.Validate(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && info.ID != tt.wantID {
				t.Errorf("Validate() id = %q, want %q", info.ID, tt.wantID)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	validator := FromConfig(&config.AuthConfig{
		Enabled: true,
		Keys: []config.APIKeyConfig{
			{ID: "svc", Key: "k2", Scopes: []string{"read", "evaluate"}},
			{ID: "admin", Key: "k1", Scopes: []string{"*"}},
			{ID: "revoked", Key: "k3", Scopes: []string{"read"}, Disabled: true},
		},
	})

	keys := validator.List()
	if len(keys) != 3 || keys[0].ID != "admin" || keys[1].ID != "revoked" || keys[2].ID != "svc" {
		t.Fatalf("List() = %v, want admin, revoked, svc", keys)
	}

	svc, err := validator.Validate("k2")
	if err != nil {
		t.Fatal(err)
	}
	if !svc.Allows(ScopeEvaluate) || svc.Allows(ScopeRegister) {
		t.Errorf("svc scopes = %v", svc.Scopes)
	}

	admin, err := validator.Validate("k1")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []Scope{ScopeRead, ScopeEvaluate, ScopeRegister, ScopeAudit} {
		if !admin.Allows(s) {
			t.Errorf("admin lacks %s", s)
		}
	}

	if _, err := validator.Validate("k3"); !errors.Is(err, ErrKeyDisabled) {
		t.Errorf("disabled key error = %v", err)
	}
}
