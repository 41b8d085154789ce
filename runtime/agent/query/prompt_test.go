package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenPromptIncludesCorrectiveContext(t *testing.T) {
	p := GenPrompt{
		Question:    "What are my total sales?",
		PriorErrors: []string{"query must contain SHOW and FROM"},
	}
	text := p.Render()
	require.Contains(t, text, "What are my total sales?")
	require.Contains(t, text, "previous attempt was rejected")
	require.Contains(t, text, "query must contain SHOW and FROM")
}

func TestGenPromptIncludesPlan(t *testing.T) {
	p := GenPrompt{
		Question: "q",
		Plan:     &Plan{Metric: "total_sales", Table: "sales", TimeRange: "-30d", Filters: []string{"region = EU"}},
	}
	text := p.Render()
	require.Contains(t, text, `"total_sales"`)
	require.Contains(t, text, `"sales"`)
	require.Contains(t, text, "region = EU")
}

func TestAnswerPromptBoundsHistoryAndData(t *testing.T) {
	history := []HistoryExchange{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}
	p := AnswerPrompt{
		Question: "current",
		History:  history,
		DataJSON: strings.Repeat("x", maxDataChars+100),
	}
	text := p.Render()
	require.NotContains(t, text, "q1", "only the last three exchanges are replayed")
	require.Contains(t, text, "q2")
	require.Contains(t, text, "q4")
	require.NotContains(t, text, strings.Repeat("x", maxDataChars+1))
	require.Contains(t, text, strings.Repeat("x", maxDataChars))
}

func TestClean(t *testing.T) {
	require.Equal(t, "SHOW total_sales FROM sales", Clean("```sql\nSHOW total_sales FROM sales\n```"))
	require.Equal(t, "SHOW x FROM orders", Clean("`SHOW x FROM orders`"))
	require.Equal(t, "SHOW x FROM orders", Clean("shopifyql SHOW x FROM orders"))
}
