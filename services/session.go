package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"amplify-bot/domain"
)

// SummaryStore receives per-conversation tallies. Satisfied by the run
// ledger; a noop implementation is used when none is configured.
type SummaryStore interface {
	SaveSummary(runID string, summary domain.ConversationSummary) error
}

// Session iterates all discoverable conversations and repeats the whole
// scan a configured number of times, so posts that arrive mid-run are
// caught by a later pass.
type Session struct {
	orchestrator *Orchestrator
	browser      Browser
	baseURL      string
	iterations   int
	store        SummaryStore
	metrics      OutcomeRecorder
	logger       *logrus.Logger
}

type SessionOption func(*Session)

func WithSessionBrowser(b Browser) SessionOption {
	return func(s *Session) { s.browser = b }
}

func WithOrchestrator(o *Orchestrator) SessionOption {
	return func(s *Session) { s.orchestrator = o }
}

func WithSessionBaseURL(u string) SessionOption {
	return func(s *Session) { s.baseURL = u }
}

func WithIterations(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.iterations = n
		}
	}
}

func WithSummaryStore(store SummaryStore) SessionOption {
	return func(s *Session) { s.store = store }
}

func WithSessionMetrics(m OutcomeRecorder) SessionOption {
	return func(s *Session) { s.metrics = m }
}

func NewSession(logger *logrus.Logger, opts ...SessionOption) *Session {
	s := &Session{
		baseURL:    domain.BaseURL,
		iterations: 2,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs the configured number of full inbox passes and returns the
// totals across all of them.
func (s *Session) Run(ctx context.Context, runID string) domain.ConversationSummary {
	totals := domain.ConversationSummary{ConversationID: runID}

	for pass := 1; pass <= s.iterations; pass++ {
		if ctx.Err() != nil {
			break
		}
		s.logger.WithFields(logrus.Fields{
			"pass":  pass,
			"total": s.iterations,
		}).Info("starting inbox pass")
		if s.metrics != nil {
			s.metrics.RecordPass()
		}

		count := s.countConversations(ctx)
		if count == 0 {
			s.logger.Info("no conversations found to process")
			continue
		}

		for index := 0; index < count; index++ {
			if ctx.Err() != nil {
				break
			}
			summary := s.orchestrator.ProcessConversation(ctx, index)
			totals.CandidatesFound += summary.CandidatesFound
			totals.Amplified += summary.Amplified
			totals.AlreadyAmplified += summary.AlreadyAmplified
			totals.Failed += summary.Failed

			if s.store != nil {
				if err := s.store.SaveSummary(runID, summary); err != nil {
					s.logger.WithError(err).Warn("failed to persist conversation summary")
				}
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"candidates":        totals.CandidatesFound,
		"amplified":         totals.Amplified,
		"already_amplified": totals.AlreadyAmplified,
		"failed":            totals.Failed,
	}).Info("session finished")
	return totals
}

func (s *Session) countConversations(ctx context.Context) int {
	main := s.browser.MainPage()
	if err := main.Navigate(ctx, s.baseURL+"/messages"); err != nil {
		s.logger.WithError(err).Error("failed to open the inbox")
		return 0
	}
	if err := main.WaitVisible(ctx, domain.ConversationReady, 15*time.Second); err != nil {
		s.logger.WithError(err).Warn("timed out waiting for the inbox")
	}

	elements, err := s.orchestrator.FindConversations(ctx, main)
	if err != nil {
		s.logger.WithError(err).Error("failed to enumerate conversations")
		return 0
	}
	return len(elements)
}
