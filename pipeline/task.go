package pipeline

import (
	"context"
	"strings"

	"node.town/parley/transcript"
)

// Done receives the outcome of a background run.
type Done func(pair transcript.Pair, err error)

// StartCapture runs CaptureAndTranslate on a supervised goroutine. The run
// slot is reserved before returning, so a second call while one is in flight
// fails with KindBusy.
func (c *Controller) StartCapture(done Done) error {
	if err := c.begin(); err != nil {
		return err
	}
	c.tasks.Go(func() {
		defer c.end()
		pair, err := c.captureAndTranslate(c.ctx)
		if done != nil {
			done(pair, err)
		}
	})
	return nil
}

// StartTranslate is the background form of TranslateText.
func (c *Controller) StartTranslate(text string, done Done) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		_, err := c.TranslateText(c.ctx, text)
		return err
	}
	if err := c.begin(); err != nil {
		return err
	}
	c.tasks.Go(func() {
		defer c.end()
		pair, err := c.translateText(c.ctx, trimmed)
		if done != nil {
			done(pair, err)
		}
	})
	return nil
}

// Wait blocks until every background run has returned.
func (c *Controller) Wait() {
	c.tasks.Wait()
}

// Shutdown cancels in-flight runs and waits for them, or for ctx.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
