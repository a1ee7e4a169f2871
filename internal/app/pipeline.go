package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/pkg/logger"
)

// Run feeds frames from src into Tick until the source is exhausted or ctx
// is cancelled. With fps > 0 frames are paced by a ticker; otherwise they
// are processed as fast as the source delivers them. Save failures are
// logged and do not stop the loop.
//
// Run returns nil when src reports io.EOF and ctx.Err() when cancelled.
func (a *App) Run(ctx context.Context, src hand.Source, fps int) error {
	return a.run(ctx, src, fps, nil)
}

func (a *App) run(ctx context.Context, src hand.Source, fps int, done func() bool) error {
	var tick <-chan time.Time
	if fps > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	frames := 0
	defer func() {
		a.log.Debug(ctx, "pipeline stopped", logger.Int("frames", frames))
	}()

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		frame, err := src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		frames++

		if _, err := a.Tick(ctx, frame); err != nil {
			a.log.Warn(ctx, "frame processed with error", logger.Error(err))
		}
		if done != nil && done() {
			return nil
		}
	}
}

// RunUntilDone is Run that also returns once the session is no longer
// active, for offline replays. It returns nil in that case.
func (a *App) RunUntilDone(ctx context.Context, src hand.Source, fps int) error {
	return a.run(ctx, src, fps, func() bool {
		return a.Status().State != session.StateTaskActive
	})
}
