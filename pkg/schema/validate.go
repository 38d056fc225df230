package schema

import "sort"

// Schema is a map of field names to their expected types.
// Example: {"x": Int(), "y": Int(), "color": Color()}
type Schema map[string]Type

// Validate checks the fields of data that the schema describes.
// Absent and null fields are valid: the engine fills them with defaults.
// Returns an *AggregateError listing every failure, ordered by field name.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, fieldName := range keys {
		value, exists := data[fieldName]
		if !exists || value == nil {
			continue
		}
		if err := schema[fieldName].Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
