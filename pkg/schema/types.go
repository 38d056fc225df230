package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/spf13/cast"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the type name used in serialized schemas (e.g., "string", "int").
	Name() string
	// Validate reports whether value can be coerced to this type.
	Validate(value any) error
}

// StringType accepts strings and scalars that read as text.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if !isScalar(value) {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// IntType accepts numbers and integer strings. Fractional numbers are truncated.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	if isBlank(value) {
		return nil
	}
	if _, err := cast.ToIntE(value); err != nil {
		return fmt.Errorf("expected int, got %T", value)
	}
	return nil
}

// FloatType accepts numbers and numeric strings.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	if isBlank(value) {
		return nil
	}
	if _, err := cast.ToFloat64E(value); err != nil {
		return fmt.Errorf("expected float, got %T", value)
	}
	return nil
}

// BoolType accepts booleans, 0/1 and "true"/"false".
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if isBlank(value) {
		return nil
	}
	if _, err := cast.ToBoolE(value); err != nil {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// Color accepts "#RRGGBB" strings.
func Color() Type {
	return Custom("color", func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected color string, got %T", value)
		}
		_, err := domain.ParseHexColor(s)
		return err
	})
}

// ParseType converts a type name to a Type.
// Supports "string", "int", "float", "bool", "color" and slices like "[int]".
func ParseType(typeStr string) (Type, error) {
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "color":
		return Color(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema, len(typeMap))
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}

func isScalar(value any) bool {
	switch reflect.ValueOf(value).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// isBlank reports an empty editor field, which the engine reads as unset.
func isBlank(value any) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}
