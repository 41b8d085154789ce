package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/runtime/agent/model"
)

type stubMessages struct {
	body sdk.MessageNewParams
	msg  *sdk.Message
	err  error
}

func (s *stubMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.body = body
	return s.msg, s.err
}

func textMessage(texts ...string) *sdk.Message {
	msg := &sdk.Message{}
	for _, t := range texts {
		msg.Content = append(msg.Content, sdk.ContentBlockUnion{Type: "text", Text: t})
	}
	return msg
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(nil, Options{Model: "claude-3-5-haiku-latest"})
	require.EqualError(t, err, "anthropic client is required")
	_, err = New(&stubMessages{}, Options{})
	require.EqualError(t, err, "model identifier is required")
}

func TestGenerateJoinsTextBlocks(t *testing.T) {
	stub := &stubMessages{msg: textMessage("Your total sales ", "were $150.")}
	c, err := New(stub, Options{Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "question")
	require.NoError(t, err)
	require.Equal(t, "Your total sales were $150.", out)
	require.Equal(t, sdk.Model("claude-3-5-haiku-latest"), stub.body.Model)
	require.EqualValues(t, defaultMaxTokens, stub.body.MaxTokens)
}

func TestGenerateWrapsProviderError(t *testing.T) {
	cause := errors.New("overloaded")
	c, err := New(&stubMessages{err: cause}, Options{Model: "m"})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p")
	var perr *model.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "anthropic", perr.Provider)
	require.ErrorIs(t, err, cause)
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	c, err := New(&stubMessages{msg: &sdk.Message{}}, Options{Model: "m"})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p")
	var perr *model.ProviderError
	require.ErrorAs(t, err, &perr)
}
