package agent

import (
	"sync"

	"github.com/storelens/storelens/runtime/agent/query"
)

// DefaultHistoryWindow bounds how many exchanges a session retains.
const DefaultHistoryWindow = 10

type (
	// Session identifies a tenant and accumulates its conversation history.
	// A Session is owned by the caller of the agent and lives for one
	// logical conversation.
	//
	// The session serializes its own history mutations so concurrent use is
	// memory-safe, but the ordering of exchanges appended by concurrent
	// requests on the same session is undefined: callers that care about
	// order must serialize their own requests.
	Session struct {
		// Tenant is the store identifier, e.g. "shop.myshopify.com".
		Tenant string
		// Credential is the bearer token passed through to the data
		// source. The agent never interprets it.
		Credential string

		mu      sync.Mutex
		history []QAExchange
		window  int
	}

	// QAExchange is one completed question/answer pair. Immutable once
	// appended.
	QAExchange struct {
		Question  string
		Answer    string
		QueryUsed string
	}
)

// NewSession builds a session for a tenant. window bounds the retained
// history; zero or negative means DefaultHistoryWindow.
func NewSession(tenant, credential string, window int) *Session {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Session{Tenant: tenant, Credential: credential, window: window}
}

// append records a completed exchange, discarding the oldest entries beyond
// the retained window.
func (s *Session) append(x QAExchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, x)
	if len(s.history) > s.window {
		s.history = s.history[len(s.history)-s.window:]
	}
}

// History returns a copy of the retained exchanges, most recent last.
func (s *Session) History() []QAExchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QAExchange, len(s.history))
	copy(out, s.history)
	return out
}

// promptHistory converts the retained exchanges into prompt context.
func (s *Session) promptHistory() []query.HistoryExchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]query.HistoryExchange, len(s.history))
	for i, h := range s.history {
		out[i] = query.HistoryExchange{Question: h.Question, Answer: h.Answer}
	}
	return out
}
