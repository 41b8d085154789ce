// Package shopify implements datasource.Source over the Shopify Admin
// GraphQL API. A Provider hands out tenant-scoped clients; every call
// authenticates with the pass-through access token and is paced by a
// per-tenant rate limiter sized for the Admin API request budget.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/storelens/storelens/runtime/agent/datasource"
)

const (
	// defaultAPIVersion pins the Admin API version the client speaks.
	defaultAPIVersion = "2024-01"

	// Admin API leaky-bucket budget: 2 requests/second refill with a small
	// burst allowance.
	requestsPerSecond = 2
	requestBurst      = 4
)

// Provider builds tenant-scoped Shopify clients. It is safe for concurrent
// use; rate limiters are shared per tenant so concurrent requests for the
// same store pace each other.
type Provider struct {
	apiVersion string
	httpClient *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithHTTPClient overrides the HTTP client used for Admin API calls.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) { p.httpClient = c }
}

// WithAPIVersion overrides the pinned Admin API version.
func WithAPIVersion(v string) ProviderOption {
	return func(p *Provider) { p.apiVersion = v }
}

// NewProvider returns a Provider with a 30s HTTP timeout and the default API
// version.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Source implements datasource.Provider. tenant is the store domain, e.g.
// "example.myshopify.com"; credential is the Admin API access token.
func (p *Provider) Source(tenant, credential string) datasource.Source {
	return &Client{
		endpoint:   fmt.Sprintf("https://%s/admin/api/%s/graphql.json", tenant, p.apiVersion),
		token:      credential,
		httpClient: p.httpClient,
		limiter:    p.limiter(tenant),
	}
}

func (p *Provider) limiter(tenant string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[tenant]
	if !ok {
		l = rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst)
		p.limiters[tenant] = l
	}
	return l
}

// Client is a tenant-scoped Shopify Admin GraphQL client.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

const ordersQuery = `query RecentOrders($limit: Int!) {
  orders(first: $limit, sortKey: CREATED_AT, reverse: true) {
    edges {
      node {
        id
        createdAt
        processedAt
        currentTotalPriceSet { shopMoney { amount } }
      }
    }
  }
}`

const productsQuery = `query CatalogProducts($limit: Int!) {
  products(first: $limit) {
    edges {
      node {
        title
        productType
        totalInventory
      }
    }
  }
}`

// FetchOrders implements datasource.Source.
func (c *Client) FetchOrders(ctx context.Context, limit int) ([]datasource.Order, error) {
	var payload struct {
		Orders struct {
			Edges []struct {
				Node struct {
					ID                   string `json:"id"`
					CreatedAt            time.Time
					ProcessedAt          time.Time
					CurrentTotalPriceSet struct {
						ShopMoney struct {
							Amount string `json:"amount"`
						} `json:"shopMoney"`
					} `json:"currentTotalPriceSet"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	}
	if err := c.query(ctx, ordersQuery, map[string]any{"limit": limit}, &payload); err != nil {
		return nil, err
	}
	orders := make([]datasource.Order, 0, len(payload.Orders.Edges))
	for _, edge := range payload.Orders.Edges {
		amount, err := strconv.ParseFloat(edge.Node.CurrentTotalPriceSet.ShopMoney.Amount, 64)
		if err != nil {
			return nil, datasource.Errorf(datasource.ErrKindResponse,
				"order %s has unparseable amount %q", edge.Node.ID, edge.Node.CurrentTotalPriceSet.ShopMoney.Amount)
		}
		orders = append(orders, datasource.Order{
			ID:          edge.Node.ID,
			NetSales:    amount,
			CreatedAt:   edge.Node.CreatedAt,
			ProcessedAt: edge.Node.ProcessedAt,
		})
	}
	return orders, nil
}

// FetchProducts implements datasource.Source.
func (c *Client) FetchProducts(ctx context.Context, limit int) ([]datasource.Product, error) {
	var payload struct {
		Products struct {
			Edges []struct {
				Node struct {
					Title          string `json:"title"`
					ProductType    string `json:"productType"`
					TotalInventory int    `json:"totalInventory"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := c.query(ctx, productsQuery, map[string]any{"limit": limit}, &payload); err != nil {
		return nil, err
	}
	products := make([]datasource.Product, 0, len(payload.Products.Edges))
	for _, edge := range payload.Products.Edges {
		products = append(products, datasource.Product{
			Title:          edge.Node.Title,
			Type:           edge.Node.ProductType,
			TotalInventory: edge.Node.TotalInventory,
		})
	}
	return products, nil
}

// ExecuteQuery implements datasource.Source. The analytics query text is
// dispatched by keyword to the matching resource: order, sales, and revenue
// terms read orders; product, inventory, and stock terms read products;
// anything else defaults to orders.
func (c *Client) ExecuteQuery(ctx context.Context, queryText string) (json.RawMessage, error) {
	lower := strings.ToLower(queryText)
	switch {
	case strings.Contains(lower, "product") || strings.Contains(lower, "inventory") || strings.Contains(lower, "stock"):
		products, err := c.FetchProducts(ctx, 100)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"products": products})
	default:
		orders, err := c.FetchOrders(ctx, 100)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"orders": orders})
	}
}

// query posts one GraphQL document and decodes the data node into out.
func (c *Client) query(ctx context.Context, doc string, variables map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return datasource.NewError(datasource.ErrKindConnectivity, err)
	}

	body, err := json.Marshal(map[string]any{"query": doc, "variables": variables})
	if err != nil {
		return datasource.NewError(datasource.ErrKindResponse, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return datasource.NewError(datasource.ErrKindConnectivity, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return datasource.NewError(datasource.ErrKindConnectivity, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return datasource.NewError(datasource.ErrKindConnectivity, err)
	}
	if resp.StatusCode != http.StatusOK {
		return datasource.Errorf(datasource.ErrKindBackend, "admin api returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return datasource.NewError(datasource.ErrKindResponse, err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return datasource.Errorf(datasource.ErrKindBackend, "%s", strings.Join(msgs, "; "))
	}
	if len(envelope.Data) == 0 {
		return datasource.Errorf(datasource.ErrKindResponse, "response carried no data node")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return datasource.NewError(datasource.ErrKindResponse, err)
	}
	return nil
}
