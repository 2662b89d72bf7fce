package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"amplify-bot/domain"
)

const maxUndoPages = 50

// UndoService reverts amplifications on a profile page. Unlike the
// per-candidate amplify loop, the undo clicks fan out concurrently: each
// affordance is an independent element and there is no shared index to
// invalidate.
type UndoService struct {
	settle time.Duration
	logger *logrus.Logger
}

func NewUndoService(logger *logrus.Logger, settle time.Duration) *UndoService {
	return &UndoService{settle: settle, logger: logger}
}

// UndoAll clicks every visible undo affordance, confirms each, scrolls for
// more, and repeats until none remain. Returns the total undone.
func (u *UndoService) UndoAll(ctx context.Context, page Page) (int, error) {
	if err := page.WaitVisible(ctx, domain.ProfileColumn, 10*time.Second); err != nil {
		return 0, err
	}

	total := 0
	for iteration := 0; iteration < maxUndoPages; iteration++ {
		buttons, err := page.QueryAll(ctx, domain.UndoMarker)
		if err != nil {
			return total, err
		}
		u.logger.WithField("count", len(buttons)).Info("undo buttons in view")
		if len(buttons) == 0 {
			break
		}

		var undone int64
		g, gctx := errgroup.WithContext(ctx)
		for _, button := range buttons {
			button := button
			g.Go(func() error {
				if err := button.Click(gctx); err != nil {
					u.logger.WithError(err).Warn("undo click failed")
					return nil
				}
				u.pause(gctx)

				confirms, err := page.QueryAll(gctx, domain.UndoConfirm)
				if err != nil || len(confirms) == 0 {
					u.logger.Warn("no undo confirmation affordance found")
					return nil
				}
				if err := confirms[0].Click(gctx); err != nil {
					u.logger.WithError(err).Warn("undo confirm click failed")
					return nil
				}
				u.pause(gctx)
				atomic.AddInt64(&undone, 1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return total, err
		}
		total += int(undone)

		if err := page.ScrollDown(ctx); err != nil {
			return total, err
		}
		u.pause(ctx)
	}

	u.logger.WithField("total", total).Info("finished undoing amplifications")
	return total, nil
}

func (u *UndoService) pause(ctx context.Context) {
	if u.settle <= 0 {
		return
	}
	select {
	case <-time.After(u.settle):
	case <-ctx.Done():
	}
}
