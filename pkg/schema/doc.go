// Package schema describes and checks the property bags of graph nodes.
//
// Node properties come from the web editor as loosely typed JSON: a coordinate
// may arrive as 500, 500.0 or "500". The types here accept every value the
// engine can coerce and reject the rest, so a schema check predicts exactly
// which properties the engine would replace with their defaults.
//
// Basic usage:
//
//	click := schema.Schema{
//	    "x": schema.Int(),
//	    "y": schema.Int(),
//	}
//
//	if err := schema.Validate(click, node.Properties); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        log.Println(e)
//	    }
//	}
//
// Schemas serialize to a map of field names to type names, which is how the
// editor learns the property types of each node kind:
//
//	{"x": "int", "y": "int", "color": "color"}
package schema
