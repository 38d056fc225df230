package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	pixel := Schema{
		"x":         Int(),
		"y":         Int(),
		"color":     Color(),
		"tolerance": Int(),
	}

	t.Run("editor values", func(t *testing.T) {
		data := map[string]any{"x": 100.0, "y": "200", "color": "#00FF00", "extra": struct{}{}}
		if err := Validate(pixel, data); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("missing and null fields use defaults", func(t *testing.T) {
		if err := Validate(pixel, map[string]any{"tolerance": nil}); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("every failure reported in field order", func(t *testing.T) {
		err := Validate(pixel, map[string]any{"y": "top", "color": "green", "x": 5})
		errs := ValidationErrors(err)
		if len(errs) != 2 {
			t.Fatalf("expected 2 errors, got %d: %v", len(errs), err)
		}
		if !strings.Contains(errs[0].Error(), `property "color"`) || !strings.Contains(errs[1].Error(), `property "y"`) {
			t.Errorf("unexpected order: %v", errs)
		}
		if !strings.HasPrefix(err.Error(), "2 validation errors") {
			t.Errorf("aggregate message = %q", err.Error())
		}
	})

	t.Run("empty schema", func(t *testing.T) {
		if err := Validate(nil, map[string]any{"x": "anything"}); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})
}

func TestValidationErrors_NotAggregate(t *testing.T) {
	if errs := ValidationErrors(nil); errs != nil {
		t.Errorf("ValidationErrors(nil) = %v", errs)
	}
	single := &AggregateError{Errors: []error{&ValidationError{Key: "x", Reason: "bad", Value: "q"}}}
	if got := single.Error(); got != `property "x": bad (value q)` {
		t.Errorf("single aggregate message = %q", got)
	}
}

func TestSchemaJSON(t *testing.T) {
	in := Schema{"x": Int(), "color": Color(), "tags": Slice(String())}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"color":"color","tags":"[string]","x":"int"}` {
		t.Errorf("Marshal = %s", data)
	}

	var out Schema
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	for k, typ := range in {
		if out[k] == nil || out[k].Name() != typ.Name() {
			t.Errorf("field %s: got %v, want %s", k, out[k], typ.Name())
		}
	}

	if err := json.Unmarshal([]byte(`{"x":"uuid"}`), &out); err == nil {
		t.Error("unknown type name should fail")
	}
	if err := json.Unmarshal([]byte(`{"x":1}`), &out); err == nil {
		t.Error("non-string type name should fail")
	}
}
