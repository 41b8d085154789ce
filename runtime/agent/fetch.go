package agent

import (
	"context"

	"github.com/storelens/storelens/runtime/agent/datasource"
	"github.com/storelens/storelens/runtime/agent/intent"
)

// Page sizes for intent-driven retrieval. Intents that target a single
// resource get a full page; the general fallback fetches both resources at
// half size to keep the synthesis input bounded.
const (
	fullPageSize  = 100
	splitPageSize = 50
)

// fetched is the retrieved commerce data handed to synthesis. Its JSON
// serialization is what the model sees.
type fetched struct {
	Orders   []datasource.Order   `json:"orders,omitempty"`
	Products []datasource.Product `json:"products,omitempty"`
}

func (f fetched) empty() bool {
	return len(f.Orders) == 0 && len(f.Products) == 0
}

// fetchForIntent retrieves the resources mapped to the classified intent:
// sales and order questions read orders, inventory and product questions read
// products, everything else reads a smaller page of both. Failures surface as
// *datasource.DataError from the source.
func fetchForIntent(ctx context.Context, src datasource.Source, label intent.Label) (fetched, error) {
	var out fetched
	switch label {
	case intent.SalesAnalysis, intent.OrderInfo:
		orders, err := src.FetchOrders(ctx, fullPageSize)
		if err != nil {
			return fetched{}, err
		}
		out.Orders = orders
	case intent.InventoryCheck, intent.ProductInfo:
		products, err := src.FetchProducts(ctx, fullPageSize)
		if err != nil {
			return fetched{}, err
		}
		out.Products = products
	default:
		orders, err := src.FetchOrders(ctx, splitPageSize)
		if err != nil {
			return fetched{}, err
		}
		products, err := src.FetchProducts(ctx, splitPageSize)
		if err != nil {
			return fetched{}, err
		}
		out.Orders = orders
		out.Products = products
	}
	return out, nil
}
