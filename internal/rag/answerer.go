package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/llm"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// Turn is one prior question and its answer.
type Turn struct {
	Question string
	Answer   string
}

// Answer is the outcome of the document-grounded answerer.
type Answer struct {
	Text      string
	Grounded  bool
	Sources   []vectordb.Source
	Retrieved int
}

// Retriever finds the chunks most similar to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]vectordb.Result, error)
}

// Sampling holds the completion parameters passed to the provider.
type Sampling struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Answerer answers from retrieved document chunks.
type Answerer struct {
	retriever Retriever
	provider  llm.Provider
	topK      int
	sampling  Sampling
	logger    *zap.Logger
	observer  StateObserver
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithObserver registers fn to receive state transitions.
func WithObserver(fn StateObserver) AnswererOption {
	return func(a *Answerer) { a.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AnswererOption {
	return func(a *Answerer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSampling sets completion parameters.
func WithSampling(s Sampling) AnswererOption {
	return func(a *Answerer) { a.sampling = s }
}

// NewAnswerer builds an Answerer retrieving topK chunks per question.
func NewAnswerer(retriever Retriever, provider llm.Provider, topK int, opts ...AnswererOption) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	a := &Answerer{
		retriever: retriever,
		provider:  provider,
		topK:      topK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Answerer) transition(s State) {
	a.logger.Debug("answer state", zap.Stringer("state", s))
	if a.observer != nil {
		a.observer(s)
	}
}

// Answer retrieves context for question and asks the model to answer from it.
// A non-grounded Answer is not an error; the caller decides what to do next.
func (a *Answerer) Answer(ctx context.Context, question string, history []Turn) (Answer, error) {
	a.transition(StateReceived)

	standalone := question
	if len(history) > 0 {
		condensed, err := a.condense(ctx, question, history)
		if err != nil {
			return Answer{}, err
		}
		standalone = condensed
	}

	a.transition(StateRetrieving)
	results, err := a.retriever.Search(ctx, standalone, a.topK)
	if err != nil {
		if !apperr.IsKind(err, apperr.ErrEmbeddingUnavailable) {
			err = apperr.Wrap(apperr.ErrEmbeddingUnavailable, "rag.Retrieve", err)
		}
		return Answer{}, err
	}
	if len(results) == 0 {
		a.transition(StateInsufficient)
		return Answer{}, nil
	}

	a.transition(StateAnswering)
	messages := make([]llm.Message, 0, 2+2*len(history))
	messages = append(messages, llm.SystemMessage(fmt.Sprintf(answerSystemPrompt, buildContext(results))))
	for _, t := range history {
		messages = append(messages, llm.UserMessage(t.Question), llm.AssistantMessage(t.Answer))
	}
	messages = append(messages, llm.UserMessage(standalone))

	text, err := a.complete(ctx, "rag.Answer", messages)
	if err != nil {
		return Answer{}, err
	}

	ans := Answer{
		Text:      text,
		Sources:   vectordb.Sources(results),
		Retrieved: len(results),
	}
	if IsInsufficient(text) {
		a.transition(StateInsufficient)
		return ans, nil
	}
	ans.Grounded = true
	a.transition(StateGrounded)
	return ans, nil
}

func (a *Answerer) condense(ctx context.Context, question string, history []Turn) (string, error) {
	text, err := a.complete(ctx, "rag.Condense", []llm.Message{
		llm.SystemMessage(condenseSystemPrompt),
		llm.UserMessage(buildCondenseInput(history, question)),
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return question, nil
	}
	a.logger.Debug("condensed question", zap.String("original", question), zap.String("standalone", text))
	return text, nil
}

func (a *Answerer) complete(ctx context.Context, op string, messages []llm.Message) (string, error) {
	return complete(ctx, a.provider, a.sampling, op, messages)
}

func complete(ctx context.Context, p llm.Provider, s Sampling, op string, messages []llm.Message) (string, error) {
	resp, err := p.Complete(ctx, llm.CompletionRequest{
		Model:       s.Model,
		Messages:    messages,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	if err != nil {
		if !apperr.IsKind(err, apperr.ErrLLMUnavailable) {
			err = apperr.Wrap(apperr.ErrLLMUnavailable, op, err)
		}
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
