package services

import (
	"context"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"amplify-bot/domain"
)

// Executor performs the amplify action on one opened candidate page.
//
// Every attempt starts with the idempotence check: if the page already
// shows an undo affordance the executor reports AlreadyAmplified and never
// touches the click sequence. Re-processing the same post must never
// double-act.
type Executor struct {
	maxRetries  int
	baseDelay   time.Duration
	delayStep   time.Duration
	waitTimeout time.Duration
	settle      time.Duration
	logger      *logrus.Logger
}

type ExecutorOption func(*Executor)

func WithMaxRetries(n int) ExecutorOption {
	return func(e *Executor) { e.maxRetries = n }
}

func WithRetryDelays(base, step time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.baseDelay = base
		e.delayStep = step
	}
}

func WithWaitTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.waitTimeout = d }
}

func WithSettle(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.settle = d }
}

func NewExecutor(logger *logrus.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		maxRetries:  3,
		baseDelay:   2 * time.Second,
		delayStep:   2 * time.Second,
		waitTimeout: 5 * time.Second,
		settle:      time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Amplify drives the action state machine with bounded retries. Each retry
// reloads the page, waits a monotonically increasing delay, and widens the
// element-wait timeouts to tolerate slow reloads. Exhaustion yields a
// terminal Failed outcome, never an error to the caller.
func (e *Executor) Amplify(ctx context.Context, page Page) domain.ActionOutcome {
	policy := retrypolicy.NewBuilder[domain.ActionOutcome]().
		HandleIf(func(_ domain.ActionOutcome, err error) bool { return err != nil }).
		WithMaxRetries(e.maxRetries).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[domain.ActionOutcome]) time.Duration {
			return e.baseDelay + time.Duration(exec.Attempts()-1)*e.delayStep
		}).
		OnRetry(func(ev failsafe.ExecutionEvent[domain.ActionOutcome]) {
			e.logger.WithFields(logrus.Fields{
				"attempt": ev.Attempts(),
				"error":   ev.LastError(),
			}).Warn("amplify attempt failed, reloading before retry")
			if err := page.Reload(ctx); err != nil {
				e.logger.WithError(err).Warn("reload before retry failed")
			}
		}).
		Build()

	outcome, err := failsafe.With(policy).GetWithExecution(
		func(exec failsafe.Execution[domain.ActionOutcome]) (domain.ActionOutcome, error) {
			return e.attempt(ctx, page, exec.Attempts())
		})
	if err != nil {
		e.logger.WithError(err).Error("amplify retries exhausted")
		return domain.OutcomeFailed
	}
	return outcome
}

// attempt runs one pass of the state machine. attemptNo is 1-based and
// widens the per-element wait timeout on later attempts.
func (e *Executor) attempt(ctx context.Context, page Page, attemptNo int) (domain.ActionOutcome, error) {
	e.pause(ctx)
	timeout := e.waitTimeout * time.Duration(attemptNo)

	already, err := e.alreadyAmplified(ctx, page)
	if err != nil {
		e.logger.WithError(err).Debug("idempotence check errored, proceeding with action")
	}
	if already {
		e.logger.Info("post is already amplified, skipping")
		return domain.OutcomeAlreadyAmplified, nil
	}

	primary, err := e.locatePrimary(ctx, page, timeout)
	if err != nil {
		return domain.OutcomeFailed, err
	}
	if err := primary.Click(ctx); err != nil {
		return domain.OutcomeFailed, &domain.UIError{Stage: "click_primary", Err: err}
	}
	e.pause(ctx)

	confirm, err := e.locateConfirm(ctx, page, timeout)
	if err != nil {
		return domain.OutcomeFailed, err
	}
	if err := confirm.Click(ctx); err != nil {
		return domain.OutcomeFailed, &domain.UIError{Stage: "click_confirm", Err: err}
	}
	e.pause(ctx)

	// Best effort: the action may complete silently without a toast.
	if err := page.WaitVisible(ctx, domain.ToastOrAlert, 4*time.Second); err != nil {
		e.logger.Debug("no confirmation toast observed")
	}

	return domain.OutcomeAmplified, nil
}

// alreadyAmplified looks for the undo affordance or its literal label.
func (e *Executor) alreadyAmplified(ctx context.Context, page Page) (bool, error) {
	markers, err := page.QueryAll(ctx, domain.UndoMarker)
	if err != nil {
		return false, err
	}
	if len(markers) > 0 {
		return true, nil
	}

	for _, text := range domain.UndoTexts {
		found, err := page.HasText(ctx, text)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (e *Executor) locatePrimary(ctx context.Context, page Page, timeout time.Duration) (Element, error) {
	if el := e.firstBySelectors(ctx, page, domain.AmplifySelectors, timeout); el != nil {
		return el, nil
	}

	// Last resort: scan every button-like element for an accessible label
	// naming either term.
	el, err := e.scanByLabel(ctx, page, domain.AnyButton, func(el Element) (string, error) {
		label, _, err := el.Attr(ctx, "aria-label")
		return label, err
	})
	if err == nil && el != nil {
		return el, nil
	}
	return nil, &domain.UIError{Stage: "locate_primary", Selector: "amplify selectors exhausted"}
}

func (e *Executor) locateConfirm(ctx context.Context, page Page, timeout time.Duration) (Element, error) {
	if el := e.firstBySelectors(ctx, page, domain.AmplifyConfirmSelectors, timeout); el != nil {
		return el, nil
	}

	el, err := e.scanByLabel(ctx, page, domain.AnyMenuItem, func(el Element) (string, error) {
		return el.Text(ctx)
	})
	if err == nil && el != nil {
		return el, nil
	}
	return nil, &domain.UIError{Stage: "locate_confirm", Selector: "confirm selectors exhausted"}
}

func (e *Executor) firstBySelectors(ctx context.Context, page Page, selectors []string, timeout time.Duration) Element {
	for _, selector := range selectors {
		if err := page.WaitVisible(ctx, selector, timeout); err != nil {
			e.logger.WithFields(logrus.Fields{
				"selector": selector,
				"error":    err,
			}).Debug("selector strategy failed")
			continue
		}
		elements, err := page.QueryAll(ctx, selector)
		if err != nil || len(elements) == 0 {
			continue
		}
		e.logger.WithField("selector", selector).Debug("selector strategy succeeded")
		return elements[0]
	}
	return nil
}

func (e *Executor) scanByLabel(ctx context.Context, page Page, selector string, label func(Element) (string, error)) (Element, error) {
	elements, err := page.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	for _, el := range elements {
		text, err := label(el)
		if err != nil {
			continue
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "retweet") || strings.Contains(lower, "repost") {
			return el, nil
		}
	}
	return nil, nil
}

func (e *Executor) pause(ctx context.Context) {
	if e.settle <= 0 {
		return
	}
	select {
	case <-time.After(e.settle):
	case <-ctx.Done():
	}
}
