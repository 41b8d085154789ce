// Package intent classifies user questions into coarse analytics categories.
// Classification drives which commerce resources the agent retrieves before
// answering; it is a pure keyword heuristic with no I/O and no model call.
package intent

import "strings"

// Label is a coarse category of a user question.
type Label string

const (
	// SalesAnalysis covers revenue, sales volume, and earnings questions.
	SalesAnalysis Label = "sales_analysis"
	// InventoryCheck covers stock level and availability questions.
	InventoryCheck Label = "inventory_check"
	// ProductInfo covers questions about the product catalog itself.
	ProductInfo Label = "product_info"
	// OrderInfo covers questions about orders and customers.
	OrderInfo Label = "order_info"
	// General is the fallback when no keyword set matches.
	General Label = "general"
)

// keywordSets is evaluated in order; the first set containing a keyword found
// in the question wins. The order is load-bearing: "how many products sold"
// must classify as sales, not product info.
var keywordSets = []struct {
	label    Label
	keywords []string
}{
	{SalesAnalysis, []string{
		"sales", "revenue", "sold", "earn", "income", "best seller",
		"top seller", "how much", "total",
	}},
	{InventoryCheck, []string{
		"inventory", "stock", "sku", "out of stock", "low stock",
		"available", "quantity",
	}},
	{ProductInfo, []string{
		"product", "item", "catalog", "listing", "variant",
	}},
	{OrderInfo, []string{
		"order", "purchase", "customer", "fulfillment", "shipping",
	}},
}

// Classify maps a raw question to a Label. It is total and deterministic:
// any input, including the empty string, yields a valid Label.
func Classify(question string) Label {
	q := strings.ToLower(question)
	for _, set := range keywordSets {
		for _, kw := range set.keywords {
			if strings.Contains(q, kw) {
				return set.label
			}
		}
	}
	return General
}

// Known reports whether l is one of the closed set of labels produced by
// Classify. Useful for validating labels that crossed a serialization
// boundary.
func Known(l Label) bool {
	switch l {
	case SalesAnalysis, InventoryCheck, ProductInfo, OrderInfo, General:
		return true
	}
	return false
}
