package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/runtime/agent"
	"github.com/storelens/storelens/runtime/agent/cache/inmem"
	"github.com/storelens/storelens/runtime/agent/datasource"
	"github.com/storelens/storelens/runtime/agent/metrics"
)

type stubModel struct {
	replies []string
	calls   int
}

func (m *stubModel) Generate(_ context.Context, _ string) (string, error) {
	if m.calls >= len(m.replies) {
		return "", context.DeadlineExceeded
	}
	r := m.replies[m.calls]
	m.calls++
	return r, nil
}

type stubSource struct {
	orders datasource.Order
	err    error
}

func (s *stubSource) FetchOrders(context.Context, int) ([]datasource.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []datasource.Order{s.orders}, nil
}

func (s *stubSource) FetchProducts(context.Context, int) ([]datasource.Product, error) {
	return nil, nil
}

func (s *stubSource) ExecuteQuery(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

type stubProvider struct {
	src *stubSource
}

func (p *stubProvider) Source(_, _ string) datasource.Source { return p.src }

func newTestService(t *testing.T, m *stubModel, src *stubSource) *Service {
	t.Helper()
	collector := metrics.NewCollector()
	a, err := agent.New(m, &stubProvider{src: src}, inmem.New(), agent.Options{
		Metrics: collector,
	})
	require.NoError(t, err)
	svc, err := New(a, collector, Options{})
	require.NoError(t, err)
	return svc
}

func postAnalyze(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(raw))
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeReturnsAnswer(t *testing.T) {
	m := &stubModel{replies: []string{"You made $42 in sales."}}
	svc := newTestService(t, m, &stubSource{orders: datasource.Order{ID: "1", NetSales: 42}})
	h := svc.Handler()

	rec := postAnalyze(t, h, AnalyzeRequest{
		StoreID:     "shop.example.com",
		Question:    "What are my total sales?",
		AccessToken: "tok",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var ans agent.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ans))
	require.Equal(t, "You made $42 in sales.", ans.Answer)
	require.Equal(t, "sales_analysis", string(ans.Intent))
	require.False(t, ans.Cached)

	// Same store, same question, answered from cache without the model.
	rec = postAnalyze(t, h, AnalyzeRequest{
		StoreID:     "shop.example.com",
		Question:    "What are my total sales?",
		AccessToken: "tok",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ans))
	require.True(t, ans.Cached)
	require.Equal(t, 1, m.calls)
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	svc := newTestService(t, &stubModel{}, &stubSource{})
	h := svc.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader([]byte("not json"))))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postAnalyze(t, h, AnalyzeRequest{StoreID: "shop.example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	require.Equal(t, "missing required fields", er.Error)
	require.NotEmpty(t, er.Suggestion)
}

func TestAnalyzeReportsDataSourceFailure(t *testing.T) {
	src := &stubSource{err: datasource.Errorf(datasource.ErrKindConnectivity, "backend unreachable")}
	svc := newTestService(t, &stubModel{}, src)

	rec := postAnalyze(t, svc.Handler(), AnalyzeRequest{
		StoreID:     "shop.example.com",
		Question:    "What are my total sales?",
		AccessToken: "tok",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	require.Equal(t, string(agent.KindDataSource), er.Error)
	require.NotEmpty(t, er.Suggestion)
}

func TestCredentialRotationStartsFreshSession(t *testing.T) {
	m := &stubModel{replies: []string{"a1", "a2"}}
	svc := newTestService(t, m, &stubSource{orders: datasource.Order{ID: "1", NetSales: 10}})

	postAnalyze(t, svc.Handler(), AnalyzeRequest{StoreID: "s", Question: "total sales?", AccessToken: "t1"})
	first := svc.session("s", "t1")
	require.Len(t, first.History(), 1)

	postAnalyze(t, svc.Handler(), AnalyzeRequest{StoreID: "s", Question: "revenue this week?", AccessToken: "t2"})
	rotated := svc.session("s", "t2")
	require.NotSame(t, first, rotated)
	require.Len(t, rotated.History(), 1)
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	m := &stubModel{replies: []string{"a1", "a2"}}
	svc := newTestService(t, m, &stubSource{orders: datasource.Order{ID: "1", NetSales: 10}})

	base := time.Now()
	svc.now = func() time.Time { return base }

	postAnalyze(t, svc.Handler(), AnalyzeRequest{StoreID: "s1", Question: "total sales?", AccessToken: "t"})
	require.Len(t, svc.session("s1", "t").History(), 1)

	// A request for another store past the idle TTL sweeps s1 out.
	svc.now = func() time.Time { return base.Add(sessionIdleTTL) }
	postAnalyze(t, svc.Handler(), AnalyzeRequest{StoreID: "s2", Question: "revenue this month?", AccessToken: "t"})

	svc.mu.Lock()
	_, kept := svc.sessions["s1"]
	svc.mu.Unlock()
	require.False(t, kept)
	require.Empty(t, svc.session("s1", "t").History())
}

func TestMetricsEndpointReturnsSnapshot(t *testing.T) {
	m := &stubModel{replies: []string{"done"}}
	svc := newTestService(t, m, &stubSource{orders: datasource.Order{ID: "1", NetSales: 10}})
	h := svc.Handler()

	postAnalyze(t, h, AnalyzeRequest{StoreID: "s", Question: "total sales?", AccessToken: "t"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, int64(1), snap.Summary.TotalRequests)
}

func TestHealthz(t *testing.T) {
	svc := newTestService(t, &stubModel{}, &stubSource{})
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
