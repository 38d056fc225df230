package schema

import (
	"errors"
	"testing"
)

func TestTypes(t *testing.T) {
	tests := []struct {
		typ     Type
		name    string
		value   any
		wantErr bool
	}{
		{String(), "string", "hello", false},
		{String(), "string", 42.0, false},
		{String(), "string", true, false},
		{String(), "string", map[string]any{}, true},
		{String(), "string", []any{"a"}, true},

		{Int(), "int", 42, false},
		{Int(), "int", int64(42), false},
		{Int(), "int", float64(42), false},
		{Int(), "int", 42.7, false}, // truncated
		{Int(), "int", "500", false},
		{Int(), "int", " ", false}, // blank editor field
		{Int(), "int", "42.5", true},
		{Int(), "int", "abc", true},
		{Int(), "int", []any{1}, true},

		{Float(), "float", 1.5, false},
		{Float(), "float", 2, false},
		{Float(), "float", "0.5", false},
		{Float(), "float", "soon", true},

		{Bool(), "bool", true, false},
		{Bool(), "bool", "false", false},
		{Bool(), "bool", 1, false},
		{Bool(), "bool", "maybe", true},

		{Color(), "color", "#FF8800", false},
		{Color(), "color", "ff8800", false},
		{Color(), "color", "#FFF", true},
		{Color(), "color", 0xFF8800, true},

		{Slice(Int()), "[int]", []any{1, "2", 3.0}, false},
		{Slice(Int()), "[int]", []any{1, "x"}, true},
		{Slice(Int()), "[int]", "1,2", true},
	}

	for _, tt := range tests {
		if tt.typ.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", tt.typ.Name(), tt.name)
		}
		err := tt.typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%#v) error = %v, wantErr %v", tt.name, tt.value, err, tt.wantErr)
		}
	}
}

func TestCustomType(t *testing.T) {
	positive := Custom("positive", func(v any) error {
		if n, ok := v.(int); ok && n > 0 {
			return nil
		}
		return errors.New("must be a positive int")
	})
	if positive.Name() != "positive" {
		t.Errorf("Name() = %q", positive.Name())
	}
	if err := positive.Validate(3); err != nil {
		t.Errorf("Validate(3) = %v", err)
	}
	if err := positive.Validate(-1); err == nil {
		t.Error("Validate(-1) should fail")
	}
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"string", "int", "float", "bool", "color", "[string]", "[[int]]"} {
		typ, err := ParseType(name)
		if err != nil {
			t.Errorf("ParseType(%q) error = %v", name, err)
			continue
		}
		if typ.Name() != name {
			t.Errorf("ParseType(%q).Name() = %q", name, typ.Name())
		}
	}
	for _, bad := range []string{"", "uuid", "[]", "[uuid]"} {
		if _, err := ParseType(bad); err == nil {
			t.Errorf("ParseType(%q) should fail", bad)
		}
	}
}
