package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"amplify-bot/domain"
)

var conversationIDRe = regexp.MustCompile(`/messages/(\d+)`)

// OutcomeRecorder receives tallies for monitoring. A nil *monitoring.Metrics
// satisfies it as a no-op.
type OutcomeRecorder interface {
	RecordCandidates(n int)
	RecordAmplified()
	RecordAlreadyAmplified()
	RecordFailed()
	RecordConversation()
	RecordPass()
}

// Orchestrator processes one conversation end to end: open, capture,
// dedup, act on every candidate, tally, and conditionally post the
// watermark.
type Orchestrator struct {
	browser       Browser
	engine        *CaptureEngine
	exec          *Executor
	baseURL       string
	watermarkText string
	settle        time.Duration
	metrics       OutcomeRecorder
	logger        *logrus.Logger

	// conversation URL of the current visit, for returning after an
	// in-pane click navigated away
	convURL string
}

type OrchestratorOption func(*Orchestrator)

func WithBrowser(b Browser) OrchestratorOption {
	return func(o *Orchestrator) { o.browser = b }
}

func WithCaptureEngine(e *CaptureEngine) OrchestratorOption {
	return func(o *Orchestrator) { o.engine = e }
}

func WithExecutor(e *Executor) OrchestratorOption {
	return func(o *Orchestrator) { o.exec = e }
}

func WithBaseURL(u string) OrchestratorOption {
	return func(o *Orchestrator) { o.baseURL = u }
}

func WithWatermarkText(t string) OrchestratorOption {
	return func(o *Orchestrator) { o.watermarkText = t }
}

func WithMetrics(m OutcomeRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithOrchestratorSettle(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.settle = d }
}

func NewOrchestrator(logger *logrus.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		baseURL:       domain.BaseURL,
		watermarkText: "Done",
		settle:        2 * time.Second,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessConversation visits the conversation at index and returns its
// tallies. No failure below it terminates the caller: a conversation that
// cannot be opened simply reports zero progress.
func (o *Orchestrator) ProcessConversation(ctx context.Context, index int) domain.ConversationSummary {
	summary := domain.ConversationSummary{}
	if o.metrics != nil {
		o.metrics.RecordConversation()
	}

	convID, opened := o.openWithRetry(ctx, index)
	if !opened {
		o.logger.WithField("conversation", index).Error("failed to open conversation, skipping")
		return summary
	}
	if convID == "" {
		convID = fmt.Sprintf("index-%d", index)
	}
	summary.ConversationID = convID

	main := o.browser.MainPage()
	candidates, err := o.engine.Capture(ctx, main)
	if err != nil {
		o.logger.WithError(err).Error("capture failed")
		return summary
	}
	// A slow-loading pane can legitimately yield nothing; reload once and
	// try again before believing it.
	if len(candidates) == 0 {
		o.logger.Info("no candidates found, reloading once")
		if err := main.Reload(ctx); err == nil {
			o.pause(ctx)
			if candidates, err = o.engine.Capture(ctx, main); err != nil {
				o.logger.WithError(err).Error("capture retry failed")
				return summary
			}
		}
	}

	candidates = Deduplicate(o.logger, candidates)
	summary.CandidatesFound = len(candidates)
	if o.metrics != nil {
		o.metrics.RecordCandidates(len(candidates))
	}

	// Resolve post URLs while every element handle is still live; the box
	// fallback below may navigate the shared page and stale them.
	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i], _ = o.resolveURL(ctx, c)
	}

	for i, c := range candidates {
		var outcome domain.ActionOutcome
		if urls[i] != "" {
			outcome = o.amplifyByURL(ctx, urls[i])
		} else if c.Kind == domain.KindEmbedded {
			outcome = o.amplifyByRelocation(ctx, c.Signature)
		} else {
			o.logger.WithField("href", c.Href).Warn("no resolvable post URL for candidate")
			outcome = domain.OutcomeFailed
		}
		o.tally(&summary, outcome)
		o.pause(ctx)
	}

	// Idempotence at conversation granularity: without new amplifications
	// the tail stays unmarked and the next run rescans it.
	if summary.Amplified > 0 {
		o.postWatermark(ctx, main)
	}

	o.logger.WithFields(logrus.Fields{
		"conversation":      convID,
		"candidates":        summary.CandidatesFound,
		"amplified":         summary.Amplified,
		"already_amplified": summary.AlreadyAmplified,
		"failed":            summary.Failed,
	}).Info("conversation processed")
	return summary
}

func (o *Orchestrator) openWithRetry(ctx context.Context, index int) (string, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		convID, err := o.openConversation(ctx, index)
		if err == nil {
			return convID, true
		}
		o.logger.WithFields(logrus.Fields{
			"conversation": index,
			"attempt":      attempt + 1,
			"error":        err,
		}).Warn("failed to open conversation")
	}
	return "", false
}

// openConversation extracts the conversation id from the list entry's
// markup for direct navigation, falling back to a click when no id is
// found.
func (o *Orchestrator) openConversation(ctx context.Context, index int) (string, error) {
	main := o.browser.MainPage()
	if err := main.Navigate(ctx, o.baseURL+"/messages"); err != nil {
		return "", err
	}
	if err := main.WaitVisible(ctx, domain.ConversationReady, 15*time.Second); err != nil {
		o.logger.WithError(err).Warn("timed out waiting for conversation list")
	}
	o.pause(ctx)

	elements, err := o.FindConversations(ctx, main)
	if err != nil {
		return "", err
	}
	if index >= len(elements) {
		return "", &domain.UIError{Stage: "open_conversation", Selector: fmt.Sprintf("index %d out of %d", index, len(elements))}
	}
	entry := elements[index]

	if html, err := entry.OuterHTML(ctx); err == nil {
		if m := conversationIDRe.FindStringSubmatch(html); m != nil {
			o.convURL = o.baseURL + "/messages/" + m[1]
			if err := main.Navigate(ctx, o.convURL); err != nil {
				return "", err
			}
			o.pause(ctx)
			return m[1], nil
		}
	}

	if err := entry.Click(ctx); err != nil {
		return "", &domain.UIError{Stage: "open_conversation", Err: err}
	}
	o.convURL = ""
	o.pause(ctx)
	return "", nil
}

// FindConversations tries the selector cascade for list entries.
func (o *Orchestrator) FindConversations(ctx context.Context, page Page) ([]Element, error) {
	for i, selector := range domain.ConversationSelectors {
		if err := page.WaitVisible(ctx, selector, 10*time.Second); err != nil {
			o.logger.WithField("selector", selector).Debug("conversation selector not visible")
			if i < len(domain.ConversationSelectors)-1 {
				continue
			}
		}
		elements, err := page.QueryAll(ctx, selector)
		if err != nil {
			continue
		}
		if len(elements) > 0 {
			return elements, nil
		}
	}
	return nil, nil
}

// resolveURL finds a post URL for the candidate: status-shaped hrefs and
// content signatures directly, otherwise a status reference scraped from
// the element's markup.
func (o *Orchestrator) resolveURL(ctx context.Context, c captured) (string, bool) {
	if c.Kind == domain.KindDirectLink {
		if c.Signature.HasStatus() {
			return ResolveHref(o.baseURL, c.Href), true
		}
		if c.el != nil {
			if html, err := c.el.OuterHTML(ctx); err == nil {
				if account, statusID, ok := parseStatusRef(html); ok {
					return StatusURL(o.baseURL, domain.Signature{Account: account, StatusID: statusID}), true
				}
			}
		}
		return "", false
	}
	if c.Signature.HasStatus() {
		return StatusURL(o.baseURL, c.Signature), true
	}
	return "", false
}

// amplifyByURL opens the post in an isolated tab, acts, and closes it. The
// tab never outlives the candidate.
func (o *Orchestrator) amplifyByURL(ctx context.Context, url string) domain.ActionOutcome {
	page, err := o.browser.NewPage(ctx)
	if err != nil {
		o.logger.WithError(err).Error("failed to open isolated view")
		return domain.OutcomeFailed
	}
	defer func() {
		if err := page.Close(); err != nil {
			o.logger.WithError(err).Debug("failed to close isolated view")
		}
	}()

	o.logger.WithField("url", url).Info("opening post")
	if err := page.Navigate(ctx, url); err != nil {
		o.logger.WithError(err).Error("failed to open post URL")
		return domain.OutcomeFailed
	}
	o.pause(ctx)

	return o.exec.Amplify(ctx, page)
}

// amplifyByRelocation re-resolves a box-signature candidate by signature
// rather than position, clicks it in the shared page, acts, and navigates
// back. Prior indices can shift after reloads, so each attempt re-queries
// the whole element set.
func (o *Orchestrator) amplifyByRelocation(ctx context.Context, sig domain.Signature) domain.ActionOutcome {
	main := o.browser.MainPage()
	for attempt := 1; attempt <= 3; attempt++ {
		elements, err := main.QueryAll(ctx, domain.EmbeddedPost)
		if err != nil {
			o.pause(ctx)
			continue
		}

		var target Element
		for _, el := range elements {
			esig, err := EmbeddedSignature(ctx, el)
			if err != nil {
				continue
			}
			if esig.Key == sig.Key {
				target = el
				break
			}
		}
		if target == nil {
			o.logger.WithFields(logrus.Fields{
				"signature": sig.Key,
				"attempt":   attempt,
			}).Warn("could not re-resolve candidate by signature")
			o.pause(ctx)
			continue
		}

		if err := target.Click(ctx); err != nil {
			o.logger.WithError(err).Warn("click on re-resolved candidate failed")
			o.pause(ctx)
			continue
		}
		o.pause(ctx)

		outcome := o.exec.Amplify(ctx, main)
		o.returnToConversation(ctx, main)
		return outcome
	}
	return domain.OutcomeFailed
}

func (o *Orchestrator) returnToConversation(ctx context.Context, main Page) {
	url := o.convURL
	if url == "" {
		url = o.baseURL + "/messages"
	}
	if err := main.Navigate(ctx, url); err != nil {
		o.logger.WithError(err).Warn("failed to navigate back to conversation")
	}
	o.pause(ctx)
}

// postWatermark types the sentinel into the composer and sends it.
func (o *Orchestrator) postWatermark(ctx context.Context, main Page) {
	var typed bool
	for _, selector := range domain.ComposerSelectors {
		if err := main.WaitVisible(ctx, selector, 5*time.Second); err != nil {
			continue
		}
		if err := main.Type(ctx, selector, o.watermarkText); err != nil {
			o.logger.WithFields(logrus.Fields{
				"selector": selector,
				"error":    err,
			}).Debug("composer input failed")
			continue
		}
		typed = true
		break
	}
	if !typed {
		o.logger.Error("could not find the message composer, watermark not posted")
		return
	}

	buttons, err := main.QueryAll(ctx, domain.ComposerSend)
	if err != nil || len(buttons) == 0 {
		o.logger.Error("could not find the send button, watermark not posted")
		return
	}
	if err := buttons[0].Click(ctx); err != nil {
		o.logger.WithError(err).Error("send click failed, watermark not posted")
		return
	}
	o.pause(ctx)
	o.logger.WithField("text", o.watermarkText).Info("posted watermark")
}

func (o *Orchestrator) tally(summary *domain.ConversationSummary, outcome domain.ActionOutcome) {
	switch outcome {
	case domain.OutcomeAmplified:
		summary.Amplified++
		if o.metrics != nil {
			o.metrics.RecordAmplified()
		}
	case domain.OutcomeAlreadyAmplified:
		summary.AlreadyAmplified++
		if o.metrics != nil {
			o.metrics.RecordAlreadyAmplified()
		}
	default:
		summary.Failed++
		if o.metrics != nil {
			o.metrics.RecordFailed()
		}
	}
}

func (o *Orchestrator) pause(ctx context.Context) {
	if o.settle <= 0 {
		return
	}
	select {
	case <-time.After(o.settle):
	case <-ctx.Done():
	}
}
