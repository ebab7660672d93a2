package rag

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/querylog"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// QueryLogger records answered questions.
type QueryLogger interface {
	Append(ctx context.Context, userID, question, answer string, source querylog.Source) (string, error)
}

// Recorder receives per-question metrics.
type Recorder interface {
	RecordQuery(source string, retrieved int, duration time.Duration)
}

// Reply is what a caller sees for one question.
type Reply struct {
	Response string            `json:"response"`
	Source   querylog.Source   `json:"source"`
	Sources  []vectordb.Source `json:"sources"`
}

// Service runs the grounded answerer, falls back when needed and logs the
// result.
type Service struct {
	answerer *Answerer
	fallback *Fallback
	log      QueryLogger
	recorder Recorder
	logger   *zap.Logger
}

// NewService wires a Service. recorder may be nil.
func NewService(answerer *Answerer, fallback *Fallback, log QueryLogger, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		answerer: answerer,
		fallback: fallback,
		log:      log,
		recorder: recorder,
		logger:   logger,
	}
}

// Ask answers question for userID.
func (s *Service) Ask(ctx context.Context, userID, question string, history []Turn) (Reply, error) {
	if strings.TrimSpace(question) == "" {
		return Reply{}, apperr.New(apperr.ErrInvalidInput, "rag.Ask", "Query cannot be empty")
	}
	start := time.Now()

	ans, err := s.answerer.Answer(ctx, question, history)
	if err != nil {
		s.logger.Error("grounded answer failed", zap.String("user_id", userID), zap.Error(err))
		return Reply{}, err
	}

	reply := Reply{Response: ans.Text, Source: querylog.SourceDocument, Sources: ans.Sources}
	if !ans.Grounded {
		text, err := s.fallback.Answer(ctx, question)
		if err != nil {
			s.logger.Error("fallback answer failed", zap.String("user_id", userID), zap.Error(err))
			return Reply{}, err
		}
		reply = Reply{Response: text, Source: querylog.SourceFallback}
	}
	if reply.Sources == nil {
		reply.Sources = []vectordb.Source{}
	}

	if _, err := s.log.Append(ctx, userID, question, reply.Response, reply.Source); err != nil {
		s.logger.Error("query log append failed", zap.String("user_id", userID), zap.Error(err))
		return Reply{}, err
	}

	elapsed := time.Since(start)
	if s.recorder != nil {
		s.recorder.RecordQuery(string(reply.Source), ans.Retrieved, elapsed)
	}
	s.logger.Info("question answered",
		zap.String("user_id", userID),
		zap.String("source", string(reply.Source)),
		zap.Int("retrieved", ans.Retrieved),
		zap.Duration("elapsed", elapsed))
	return reply, nil
}
