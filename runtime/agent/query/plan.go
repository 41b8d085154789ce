package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Plan is the optional structured intermediate derived from a question. It is
// consumed only by query generation; the plan itself is never executed. A nil
// plan is a valid workflow state: planning is best-effort and its failure
// degrades to unplanned generation.
type Plan struct {
	Intent    string   `json:"intent"`
	Metric    string   `json:"metric"`
	Table     string   `json:"table"`
	TimeRange string   `json:"time_range"`
	Filters   []string `json:"filters,omitempty"`
}

// planSchema constrains model output before it is trusted as a Plan. The
// schema mirrors the closed vocabulary the generation prompt advertises.
const planSchema = `{
	"type": "object",
	"required": ["intent", "metric", "table", "time_range"],
	"properties": {
		"intent": {"type": "string", "minLength": 1},
		"metric": {"type": "string", "minLength": 1},
		"table": {
			"type": "string",
			"enum": ["orders", "products", "sales", "customers", "inventory_levels"]
		},
		"time_range": {"type": "string", "minLength": 1},
		"filters": {"type": "array", "items": {"type": "string"}}
	},
	"additionalProperties": false
}`

var (
	planSchemaOnce     sync.Once
	compiledPlanSchema *jsonschema.Schema
	planSchemaErr      error
)

func planSchemaCompiled() (*jsonschema.Schema, error) {
	planSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(planSchema), &doc); err != nil {
			planSchemaErr = fmt.Errorf("unmarshal plan schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("plan.json", doc); err != nil {
			planSchemaErr = fmt.Errorf("add plan schema resource: %w", err)
			return
		}
		compiledPlanSchema, planSchemaErr = c.Compile("plan.json")
	})
	return compiledPlanSchema, planSchemaErr
}

// ParsePlan decodes and validates a model-produced plan document. Model
// output is untrusted: the document is checked against the plan schema before
// any field is used. Markdown code fences around the JSON are tolerated since
// models add them despite instructions.
func ParsePlan(raw string) (*Plan, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty plan document")
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	schema, err := planSchemaCompiled()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("plan does not match schema: %w", err)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &plan, nil
}

// stripFences removes surrounding markdown code fences and language tags from
// model output.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
