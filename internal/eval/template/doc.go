// Package template provides a Handlebars template engine for string effects
// produced by rules.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	data := map[string]interface{}{
//	    "customer": "Ada",
//	    "total":    135.0,
//	}
//
//	result, err := engine.Render("Discount for {{uppercase customer}}: {{fixed total 2}}", data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Output: Discount for ADA: 135.00
//
// Built-in helpers:
//   - uppercase, lowercase, trim - String case and whitespace
//   - default - Return default value if first arg is empty
//   - eq, ne - Equality comparison
//   - gt, lt - Numeric comparison
//   - contains - Check if string contains substring
//   - join - Join array elements with separator
//   - len - Get length of array/string/map
//   - fixed - Format a number with a fixed number of decimals
package template
