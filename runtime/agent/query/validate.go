// Package query holds the textual analytics query primitives used by the
// agent: validation of generated ShopifyQL-style query strings, the optional
// structured query plan, and the prompt builders that request query
// generation and answer synthesis from a model.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Result reports the outcome of validating a generated query. All rule
// violations are collected, not just the first, so the orchestrator can feed
// the full list back to the model as corrective context.
type Result struct {
	Valid  bool
	Errors []string
}

// allowedTables is the closed set of analytics sources a generated query may
// reference.
var allowedTables = []string{"orders", "products", "sales", "customers", "inventory_levels"}

var (
	hardcodedDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	dangerousOp   = regexp.MustCompile(`(?i)\b(delete|drop|update|insert|alter)\b`)
)

// Validate checks a generated query string against the structural and safety
// rules enforced before any network call:
//
//  1. The query must contain both a SHOW and a FROM marker.
//  2. It must reference at least one allow-listed table.
//  3. It must not pin an absolute calendar date; relative windows keep cached
//     results comparable across runs.
//  4. It must not contain a mutating-operation keyword, guarding against
//     prompt-injected destructive queries.
//
// The result is valid iff no rule is violated.
func Validate(q string) Result {
	var errs []string
	lower := strings.ToLower(q)

	if !strings.Contains(lower, "show") || !strings.Contains(lower, "from") {
		errs = append(errs, "query must contain SHOW and FROM")
	}

	hasTable := false
	for _, table := range allowedTables {
		if strings.Contains(lower, table) {
			hasTable = true
			break
		}
	}
	if !hasTable {
		errs = append(errs, fmt.Sprintf("query must reference one of the known tables: %s",
			strings.Join(allowedTables, ", ")))
	}

	if hardcodedDate.MatchString(q) {
		errs = append(errs, "query must not contain hardcoded dates; use relative ranges like SINCE -30d")
	}

	if m := dangerousOp.FindString(q); m != "" {
		errs = append(errs, fmt.Sprintf("query contains dangerous operation %s", strings.ToUpper(m)))
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}
