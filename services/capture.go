package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"amplify-bot/domain"
)

const maxScrollSteps = 50

// CaptureEngine harvests post candidates from an open conversation pane.
// The pane lazy-loads older messages at the top, so the engine scrolls
// upward in batches until the watermark sentinel becomes visible, the top
// of history is reached, or the step ceiling fires.
type CaptureEngine struct {
	watermarkText string
	batchSize     int
	settle        time.Duration
	waitTimeout   time.Duration
	logger        *logrus.Logger
}

func NewCaptureEngine(watermarkText string, batchSize int, settle time.Duration, logger *logrus.Logger) *CaptureEngine {
	if batchSize <= 0 {
		batchSize = 2
	}
	return &CaptureEngine{
		watermarkText: watermarkText,
		batchSize:     batchSize,
		settle:        settle,
		waitTimeout:   10 * time.Second,
		logger:        logger,
	}
}

type captureState struct {
	seenEmbedded map[string]bool
	seenHrefs    map[string]bool
	out          []captured
}

// Capture returns the candidates that exist below the watermark. A
// conversation whose content never becomes visible yields zero candidates
// without error; a conversation without a watermark is fully in scope.
func (e *CaptureEngine) Capture(ctx context.Context, page Page) ([]captured, error) {
	if err := page.WaitVisible(ctx, domain.ChatContainer, e.waitTimeout); err != nil {
		e.logger.WithError(err).Warn("chat content never became visible, treating as empty")
		return nil, nil
	}
	e.pause(ctx)

	state := &captureState{
		seenEmbedded: make(map[string]bool),
		seenHrefs:    make(map[string]bool),
	}

	prevOffset := -1.0
	first := true
	for step := 1; step <= maxScrollSteps; step++ {
		offset, err := page.ScrollOffset(ctx)
		if err != nil {
			return nil, err
		}
		if !first && offset == prevOffset {
			e.logger.WithField("steps", step).Debug("scroll offset unchanged, top of history reached")
			break
		}
		first = false
		prevOffset = offset

		if err := page.ScrollUp(ctx); err != nil {
			return nil, err
		}
		e.pause(ctx)

		if step%e.batchSize != 0 {
			continue
		}
		if err := e.sweep(ctx, page, state); err != nil {
			return nil, err
		}
		if wm, _ := e.findWatermark(ctx, page); wm != nil {
			e.logger.WithField("steps", step).Debug("watermark visible, stopping scroll")
			break
		}
	}

	// Content can load between the last batch boundary and the stop
	// condition, so always sweep once more.
	if err := e.sweep(ctx, page, state); err != nil {
		return nil, err
	}

	e.logger.WithField("candidates", len(state.out)).Info("capture finished")
	return state.out, nil
}

// sweep re-queries the document for both candidate shapes and appends
// anything new that sits below the watermark.
func (e *CaptureEngine) sweep(ctx context.Context, page Page, state *captureState) error {
	watermark, count := e.findWatermark(ctx, page)
	if count > 0 {
		e.logger.WithField("count", count).Debug("watermark sentinels in view")
	}
	cutoff, haveCutoff := e.watermarkBottom(ctx, watermark)

	embedded, err := page.QueryAll(ctx, domain.EmbeddedPost)
	if err != nil {
		return err
	}
	for _, el := range embedded {
		if state.seenEmbedded[el.ID()] {
			continue
		}
		state.seenEmbedded[el.ID()] = true
		if !e.inScope(ctx, el, cutoff, haveCutoff) {
			continue
		}
		sig, err := EmbeddedSignature(ctx, el)
		if err != nil {
			e.logger.WithError(err).Debug("could not derive embedded signature, skipping element")
			continue
		}
		state.out = append(state.out, captured{
			Candidate: domain.Candidate{Kind: domain.KindEmbedded, Signature: sig},
			el:        el,
		})
	}

	anchors, err := page.QueryAll(ctx, domain.DirectAnchor)
	if err != nil {
		return err
	}
	for _, el := range anchors {
		href, ok, err := el.Attr(ctx, "href")
		if err != nil || !ok || href == "" {
			continue
		}
		if state.seenHrefs[href] {
			continue
		}
		state.seenHrefs[href] = true
		if !e.inScope(ctx, el, cutoff, haveCutoff) {
			continue
		}
		state.out = append(state.out, captured{
			Candidate: domain.Candidate{
				Kind:      domain.KindDirectLink,
				Href:      href,
				Signature: DirectLinkSignature(href),
			},
			el: el,
		})
	}

	return nil
}

// findWatermark locates the most recent sentinel message currently in the
// document. The watermark is recomputed from the conversation content on
// every run; nothing about it is persisted locally.
func (e *CaptureEngine) findWatermark(ctx context.Context, page Page) (Element, int) {
	spans, err := page.QueryAll(ctx, domain.MessageSpan)
	if err != nil {
		return nil, 0
	}

	var last Element
	count := 0
	for _, span := range spans {
		text, err := span.Text(ctx)
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(text), e.watermarkText) {
			count++
			last = span
		}
	}
	return last, count
}

func (e *CaptureEngine) watermarkBottom(ctx context.Context, watermark Element) (float64, bool) {
	if watermark == nil {
		return 0, false
	}
	box, err := watermark.Box(ctx)
	if err != nil {
		e.logger.WithError(err).Debug("could not read watermark box, including all candidates")
		return 0, false
	}
	return box.Bottom, true
}

// inScope keeps only candidates strictly below the watermark's bottom
// edge. Candidates whose position cannot be read are kept.
func (e *CaptureEngine) inScope(ctx context.Context, el Element, cutoff float64, haveCutoff bool) bool {
	if !haveCutoff {
		return true
	}
	box, err := el.Box(ctx)
	if err != nil {
		return true
	}
	return box.Top > cutoff
}

func (e *CaptureEngine) pause(ctx context.Context) {
	if e.settle <= 0 {
		return
	}
	select {
	case <-time.After(e.settle):
	case <-ctx.Done():
	}
}
