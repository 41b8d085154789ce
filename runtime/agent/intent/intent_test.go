package intent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		question string
		want     Label
	}{
		{"top sellers", "What were my top sellers last month?", SalesAnalysis},
		{"revenue", "Show me revenue for the last quarter", SalesAnalysis},
		{"out of stock", "Which SKUs are out of stock?", InventoryCheck},
		{"stock levels", "What are my current stock levels?", InventoryCheck},
		{"catalog", "List everything in my catalog", ProductInfo},
		{"orders", "How many orders came in yesterday?", OrderInfo},
		{"greeting", "hello", General},
		{"empty", "", General},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.question))
		})
	}
}

func TestClassifyOrderIsSignificant(t *testing.T) {
	// "sold" and "product" both appear; sales keywords are checked first.
	require.Equal(t, SalesAnalysis, Classify("How many products sold this week?"))
	// "stock" and "product" both appear; inventory wins over product info.
	require.Equal(t, InventoryCheck, Classify("Which products are low on stock?"))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	require.Equal(t, SalesAnalysis, Classify("TOTAL SALES?"))
	require.Equal(t, InventoryCheck, Classify("Inventory Report"))
}

func TestKnown(t *testing.T) {
	for _, l := range []Label{SalesAnalysis, InventoryCheck, ProductInfo, OrderInfo, General} {
		require.True(t, Known(l))
	}
	require.False(t, Known(Label("sentiment")))
}
