package query

import (
	"fmt"
	"strings"
)

// Prompt builders produce the text sent to the text-generation interface.
// They are structured values rather than inline string splicing so tests can
// assert on the parts without depending on exact formatting.

const (
	// maxHistoryExchanges bounds how much prior conversation is replayed to
	// the model per request.
	maxHistoryExchanges = 3
	// maxHistoryChars truncates each replayed exchange.
	maxHistoryChars = 500
	// maxDataChars caps the serialized data included in an answer prompt to
	// respect generation-input limits.
	maxDataChars = 8000
)

// schemaContext describes the analytics tables the model may target. It is
// shared by the plan and generation prompts.
const schemaContext = `Schema:
- "orders": id, net_sales, created_at, processed_at
- "products": product_title, product_type, total_inventory
- "sales": revenue and quantity metrics (total_sales, gross_sales, orders_count, quantity)`

// PlanPrompt requests a structured query plan for a question.
type PlanPrompt struct {
	Question string
}

// Render produces the prompt text.
func (p PlanPrompt) Render() string {
	var b strings.Builder
	b.WriteString("You are a commerce analytics planner. Break the user's question into a query plan.\n\n")
	b.WriteString(schemaContext)
	b.WriteString("\n\nRespond with a single JSON object and nothing else:\n")
	b.WriteString(`{"intent": "...", "metric": "...", "table": "orders|products|sales|customers|inventory_levels", "time_range": "...", "filters": ["..."]}`)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(p.Question)
	return b.String()
}

// GenPrompt requests a candidate query string for a question. PriorErrors
// carries the validator's findings from the previous attempt so the model can
// correct them.
type GenPrompt struct {
	Question    string
	Plan        *Plan
	PriorErrors []string
}

// Render produces the prompt text.
func (p GenPrompt) Render() string {
	var b strings.Builder
	b.WriteString("You are a Shopify analytics expert. Convert the user's question into a valid ShopifyQL query.\n\n")
	b.WriteString(schemaContext)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Output ONLY the raw query string: no markdown, no explanations.\n")
	b.WriteString("2. Use relative date ranges with SINCE and UNTIL (e.g. SINCE -1m UNTIL today), never absolute dates.\n")
	b.WriteString("3. For revenue or \"how much\" questions prefer the sales or orders table.\n")
	if p.Plan != nil {
		fmt.Fprintf(&b, "\nPlan to follow: metric %q from table %q over %q.\n",
			p.Plan.Metric, p.Plan.Table, p.Plan.TimeRange)
		if len(p.Plan.Filters) > 0 {
			fmt.Fprintf(&b, "Apply filters: %s.\n", strings.Join(p.Plan.Filters, "; "))
		}
	}
	if len(p.PriorErrors) > 0 {
		b.WriteString("\nYour previous attempt was rejected. Fix these problems:\n")
		for _, e := range p.PriorErrors {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(p.Question)
	return b.String()
}

// HistoryExchange is one prior question/answer pair replayed as context.
type HistoryExchange struct {
	Question string
	Answer   string
}

// AnswerPrompt requests a natural-language answer from the retrieved data.
type AnswerPrompt struct {
	Question string
	History  []HistoryExchange
	DataJSON string
}

// Render produces the prompt text. History is limited to the most recent
// three exchanges and the serialized data is truncated to stay inside
// generation-input limits.
func (p AnswerPrompt) Render() string {
	var b strings.Builder
	b.WriteString("You are a helpful business assistant for a commerce store.\n")

	history := p.History
	if len(history) > maxHistoryExchanges {
		history = history[len(history)-maxHistoryExchanges:]
	}
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", truncate(h.Question, maxHistoryChars), truncate(h.Answer, maxHistoryChars))
		}
	}

	fmt.Fprintf(&b, "\nUser question: %q\n", p.Question)
	fmt.Fprintf(&b, "\nData retrieved:\n%s\n", truncate(p.DataJSON, maxDataChars))

	b.WriteString(`
Instructions:
1. Answer the question clearly based on the data.
2. If the data is empty or insufficient, say so politely and suggest trying a different date range.
3. Do not mention JSON, queries, or other technical terms.
4. Format currency amounts for readability (e.g. $1,234.56).`)
	return b.String()
}

// Clean strips markdown fences and language tags that models wrap around
// generated query strings despite instructions not to.
func Clean(generated string) string {
	s := strings.TrimSpace(generated)
	s = strings.ReplaceAll(s, "`", "")
	s = strings.TrimPrefix(s, "shopifyql")
	s = strings.TrimPrefix(s, "sql")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
