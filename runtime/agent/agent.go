// Package agent implements the question-answering workflow: cache check,
// intent classification, data retrieval, answer synthesis, and cache store,
// with bounded retries in plan-and-generate mode.
//
// The agent owns no transport or persistence. The text-generation client,
// data-source provider, cache store, and metrics sink are injected
// collaborators; the agent composes them into one request pipeline per call
// to Ask. Every external call runs under a per-call timeout and respects
// caller cancellation; only fully computed answers are written to the cache.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storelens/storelens/runtime/agent/cache"
	"github.com/storelens/storelens/runtime/agent/datasource"
	"github.com/storelens/storelens/runtime/agent/intent"
	"github.com/storelens/storelens/runtime/agent/metrics"
	"github.com/storelens/storelens/runtime/agent/model"
	"github.com/storelens/storelens/runtime/agent/query"
	"github.com/storelens/storelens/runtime/agent/telemetry"
)

// Mode selects the orchestration strategy.
type Mode string

const (
	// ModeDirect classifies once, fetches the intent-mapped resources once,
	// and synthesizes once. Data-source errors are fatal to the request.
	// Answers are cached by the raw question text, so only the exact
	// question (modulo whitespace and case) hits the entry again.
	ModeDirect Mode = "direct"
	// ModePlan generates an analytics query from the question under a
	// bounded retry loop with validation feedback, and executes it against
	// the data source. Backend errors are retryable within the attempt
	// budget. Answers are cached by the generated query text, so
	// paraphrases that compile to the same query share an entry.
	ModePlan Mode = "plan"
)

// Confidence labels attached to answers.
const (
	ConfidenceHigh   = "high"
	ConfidenceCached = "high (cached)"
	ConfidenceLow    = "low"
)

// DefaultMaxAttempts bounds the plan-and-generate retry loop.
const DefaultMaxAttempts = 2

// DefaultCallTimeout bounds each external text-generation or data-source
// call. Running without a timeout is not supported.
const DefaultCallTimeout = 30 * time.Second

type (
	// Agent runs the question-answering workflow. It is safe for concurrent
	// use: all per-request state lives on the stack and the cache and
	// metrics sink serialize themselves.
	Agent struct {
		model   model.Client
		sources datasource.Provider
		store   cache.Store
		sink    metrics.Sink
		logger  telemetry.Logger
		instr   telemetry.Metrics

		mode        Mode
		maxAttempts int
		callTimeout time.Duration
	}

	// Options configures optional Agent behavior. The zero value selects
	// direct mode, two attempts, a 30s per-call timeout, and no-op
	// telemetry.
	Options struct {
		// Mode selects the orchestration strategy; defaults to ModeDirect.
		Mode Mode
		// MaxAttempts bounds the plan-mode retry loop; defaults to
		// DefaultMaxAttempts.
		MaxAttempts int
		// CallTimeout bounds each external call; defaults to
		// DefaultCallTimeout.
		CallTimeout time.Duration
		// Metrics receives a sample per completed request; defaults to a
		// no-op sink.
		Metrics metrics.Sink
		// Logger receives workflow logs; defaults to a no-op logger.
		Logger telemetry.Logger
		// Instrumentation receives low-level counters and timers; defaults
		// to no-op.
		Instrumentation telemetry.Metrics
	}

	// Answer is the successful (possibly degraded) result of Ask. Its JSON
	// form is also the cache payload.
	Answer struct {
		// Answer is the natural-language answer text.
		Answer string `json:"answer"`
		// Intent is the classified question category.
		Intent intent.Label `json:"intent,omitempty"`
		// QueryUsed is the executed analytics query in plan mode; empty in
		// direct mode.
		QueryUsed string `json:"query_used,omitempty"`
		// Confidence is "high", "high (cached)", or "low".
		Confidence string `json:"confidence"`
		// Cached reports whether this answer was served from the cache.
		Cached bool `json:"cached"`
	}
)

// New builds an Agent from its collaborators.
func New(m model.Client, sources datasource.Provider, store cache.Store, opts Options) (*Agent, error) {
	if m == nil {
		return nil, errors.New("model client is required")
	}
	if sources == nil {
		return nil, errors.New("data source provider is required")
	}
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeDirect
	}
	if mode != ModeDirect && mode != ModePlan {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	sink := opts.Metrics
	if sink == nil {
		sink = metrics.Noop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	instr := opts.Instrumentation
	if instr == nil {
		instr = telemetry.NewNoopMetrics()
	}
	return &Agent{
		model:       m,
		sources:     sources,
		store:       store,
		sink:        sink,
		logger:      logger,
		instr:       instr,
		mode:        mode,
		maxAttempts: maxAttempts,
		callTimeout: timeout,
	}, nil
}

// Ask answers a question for the session's tenant. On success the exchange is
// appended to the session history, the answer is cached, and a metrics sample
// is recorded. Hard failures return a *RequestError and leave the history
// untouched.
func (a *Agent) Ask(ctx context.Context, sess *Session, question string) (*Answer, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question is required")
	}

	started := time.Now()
	var (
		ans *Answer
		err error
	)
	switch a.mode {
	case ModePlan:
		ans, err = a.askPlanned(ctx, sess, question)
	default:
		ans, err = a.askDirect(ctx, sess, question)
	}

	a.finish(ctx, sess, question, ans, err, time.Since(started))
	return ans, err
}

// askDirect is the single-shot strategy: classify, fetch, synthesize.
func (a *Agent) askDirect(ctx context.Context, sess *Session, question string) (*Answer, error) {
	key := cache.KeyFor(sess.Tenant, question)
	if ans := a.cachedAnswer(ctx, key); ans != nil {
		a.appendExchange(sess, question, ans)
		return ans, nil
	}

	label := intent.Classify(question)
	src := a.sources.Source(sess.Tenant, sess.Credential)

	fctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	data, err := fetchForIntent(fctx, src, label)
	cancel()
	if err != nil {
		a.logger.Error(ctx, "data fetch failed", "tenant", sess.Tenant, "intent", string(label), "err", err.Error())
		return nil, dataSourceError(err)
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode fetched data: %w", err)
	}
	text, fellBack := a.synthesize(ctx, question, sess.promptHistory(), string(dataJSON))

	confidence := ConfidenceHigh
	if fellBack || data.empty() {
		confidence = ConfidenceLow
	}
	ans := &Answer{
		Answer:     text,
		Intent:     label,
		Confidence: confidence,
	}
	a.storeAnswer(ctx, key, ans)
	a.appendExchange(sess, question, ans)
	return ans, nil
}

// askPlanned is the plan-and-generate strategy: best-effort planning, then a
// bounded generate/validate/execute loop with validator feedback.
func (a *Agent) askPlanned(ctx context.Context, sess *Session, question string) (*Answer, error) {
	label := intent.Classify(question)
	src := a.sources.Source(sess.Tenant, sess.Credential)
	plan := a.plan(ctx, question)

	var (
		priorErrors []string
		lastErr     error
	)
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prompt := query.GenPrompt{Question: question, Plan: plan, PriorErrors: priorErrors}
		raw, err := a.generate(ctx, prompt.Render())
		if err != nil {
			lastErr = err
			priorErrors = nil
			a.logger.Warn(ctx, "query generation failed", "attempt", attempt, "err", err.Error())
			continue
		}
		q := query.Clean(raw)

		res := query.Validate(q)
		if !res.Valid {
			lastErr = fmt.Errorf("generated query rejected: %s", strings.Join(res.Errors, "; "))
			priorErrors = res.Errors
			a.instr.IncCounter("agent.query.rejected", 1)
			a.logger.Info(ctx, "generated query rejected", "attempt", attempt, "violations", strings.Join(res.Errors, "; "))
			continue
		}
		priorErrors = nil

		key := cache.KeyFor(sess.Tenant, q)
		if ans := a.cachedAnswer(ctx, key); ans != nil {
			ans.QueryUsed = q
			a.appendExchange(sess, question, ans)
			return ans, nil
		}

		qctx, cancel := context.WithTimeout(ctx, a.callTimeout)
		result, err := src.ExecuteQuery(qctx, q)
		cancel()
		if err != nil {
			lastErr = err
			a.logger.Warn(ctx, "query execution failed", "attempt", attempt, "query", q, "err", err.Error())
			continue
		}

		text, fellBack := a.synthesize(ctx, question, sess.promptHistory(), string(result))
		confidence := ConfidenceHigh
		if fellBack || emptyResult(result) {
			confidence = ConfidenceLow
		}
		ans := &Answer{
			Answer:     text,
			Intent:     label,
			QueryUsed:  q,
			Confidence: confidence,
		}
		a.storeAnswer(ctx, key, ans)
		a.appendExchange(sess, question, ans)
		return ans, nil
	}

	return nil, exhaustedError(a.maxAttempts, lastErr)
}

// plan derives a structured query plan from the question. Best effort: any
// failure is logged and planning degrades to a nil plan.
func (a *Agent) plan(ctx context.Context, question string) *query.Plan {
	raw, err := a.generate(ctx, query.PlanPrompt{Question: question}.Render())
	if err != nil {
		a.logger.Info(ctx, "planning failed, proceeding without a plan", "err", err.Error())
		return nil
	}
	plan, err := query.ParsePlan(raw)
	if err != nil {
		a.logger.Info(ctx, "plan rejected, proceeding without a plan", "err", err.Error())
		return nil
	}
	return plan
}

// cachedAnswer fetches and decodes a cached answer. Cache failures are
// treated as misses: the cache can never fail a request.
func (a *Agent) cachedAnswer(ctx context.Context, key string) *Answer {
	payload, ok, err := a.store.Get(ctx, key)
	if err != nil {
		a.logger.Warn(ctx, "cache lookup failed", "err", err.Error())
		return nil
	}
	if !ok {
		return nil
	}
	var ans Answer
	if err := json.Unmarshal(payload, &ans); err != nil {
		a.logger.Warn(ctx, "cache payload corrupt, ignoring", "err", err.Error())
		return nil
	}
	ans.Cached = true
	ans.Confidence = ConfidenceCached
	return &ans
}

// storeAnswer writes a fully computed answer to the cache. Failures are
// logged and otherwise ignored.
func (a *Agent) storeAnswer(ctx context.Context, key string, ans *Answer) {
	payload, err := json.Marshal(ans)
	if err != nil {
		a.logger.Warn(ctx, "encode cache payload failed", "err", err.Error())
		return
	}
	if err := a.store.Put(ctx, key, payload); err != nil {
		a.logger.Warn(ctx, "cache store failed", "err", err.Error())
	}
}

func (a *Agent) appendExchange(sess *Session, question string, ans *Answer) {
	sess.append(QAExchange{Question: question, Answer: ans.Answer, QueryUsed: ans.QueryUsed})
}

// finish records the request outcome. Recording is best-effort and never
// affects the returned result.
func (a *Agent) finish(ctx context.Context, sess *Session, question string, ans *Answer, err error, elapsed time.Duration) {
	sample := metrics.Sample{
		Tenant:  sess.Tenant,
		Success: err == nil,
		Latency: elapsed,
	}
	if ans != nil {
		sample.Intent = string(ans.Intent)
		sample.CacheHit = ans.Cached
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		sample.ErrorKind = string(reqErr.Kind)
	} else if err != nil {
		sample.ErrorKind = "internal"
	}
	a.sink.Record(sample)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	a.instr.IncCounter("agent.requests", 1, "outcome", outcome, "mode", string(a.mode))
	a.instr.RecordTimer("agent.request.duration", elapsed, "mode", string(a.mode))
	a.logger.Debug(ctx, "request finished",
		"tenant", sess.Tenant,
		"question_len", len(question),
		"outcome", outcome,
		"elapsed_ms", elapsed.Milliseconds())
}

// emptyResult reports whether a raw query result carries no rows. The result
// shape is backend-defined, so this is a conservative probe: an empty
// document, an empty array, a resource envelope whose arrays are all empty,
// or an explicitly empty rowData table all count as empty.
func emptyResult(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "{}" || trimmed == "[]" || trimmed == "null" {
		return true
	}

	// Resource envelopes, the shape ExecuteQuery returns: empty when every
	// resource array present carries no elements.
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	rawOrders, hasOrders := doc["orders"]
	rawProducts, hasProducts := doc["products"]
	if hasOrders || hasProducts {
		return jsonArrayEmpty(rawOrders) && jsonArrayEmpty(rawProducts)
	}

	var probe struct {
		Data struct {
			Query struct {
				TableData struct {
					RowData []json.RawMessage `json:"rowData"`
				} `json:"tableData"`
			} `json:"shopifyqlQuery"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	// Only judge emptiness when the document actually is a table response.
	if strings.Contains(trimmed, "rowData") {
		return len(probe.Data.Query.TableData.RowData) == 0
	}
	return false
}

// jsonArrayEmpty reports whether raw is absent or an array with no elements.
// Non-array values are never judged empty.
func jsonArrayEmpty(raw json.RawMessage) bool {
	if raw == nil {
		return true
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return false
	}
	return len(list) == 0
}
