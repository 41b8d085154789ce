package agent

import (
	"context"

	"github.com/storelens/storelens/runtime/agent/query"
)

// fallbackAnswer is returned when synthesis fails. Generation failure is
// non-fatal: the caller still gets an answer, marked low confidence.
const fallbackAnswer = "I retrieved your store data but could not put together " +
	"an explanation right now. Please try asking again in a moment."

// synthesize produces the natural-language answer for a question and its
// retrieved data. The second return reports whether the fixed fallback was
// used instead of a model answer.
func (a *Agent) synthesize(ctx context.Context, question string, history []query.HistoryExchange, dataJSON string) (string, bool) {
	prompt := query.AnswerPrompt{
		Question: question,
		History:  history,
		DataJSON: dataJSON,
	}
	answer, err := a.generate(ctx, prompt.Render())
	if err != nil {
		a.logger.Warn(ctx, "synthesis failed, using fallback answer", "err", err.Error())
		a.instr.IncCounter("agent.synthesis.fallbacks", 1)
		return fallbackAnswer, true
	}
	return answer, false
}

// generate invokes the text-generation client under the per-call timeout.
func (a *Agent) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	return a.model.Generate(ctx, prompt)
}
