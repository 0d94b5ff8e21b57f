package worker

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

/* Runner executes background jobs outside the request that submitted them
 * Jobs get a context detached from the caller, so a client disconnect never aborts routing
 * A panicking job is logged and never takes the process down
 */
type Runner struct {
	ctx      context.Context
	wg       conc.WaitGroup
	inFlight atomic.Int64
	logger   zerolog.Logger
}

// New creates a runner whose jobs inherit the values, not the cancellation, of ctx
func New(ctx context.Context, logger zerolog.Logger) *Runner {
	return &Runner{
		ctx:    context.WithoutCancel(ctx),
		logger: logger,
	}
}

// Go starts fn in its own goroutine
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.inFlight.Add(1)
	r.wg.Go(func() {
		defer r.inFlight.Add(-1)

		var err error
		var pc panics.Catcher
		pc.Try(func() { err = fn(r.ctx) })

		if recovered := pc.Recovered(); recovered != nil {
			r.logger.Error().
				Err(recovered.AsError()).
				Str("job", name).
				Str("stack", string(recovered.Stack)).
				Msg("background job panicked")
			return
		}
		if err != nil {
			r.logger.Error().Err(err).Str("job", name).Msg("background job failed")
		}
	})
}

// InFlight returns the number of jobs currently running
func (r *Runner) InFlight() int64 {
	return r.inFlight.Load()
}

// Wait blocks until every submitted job has finished or ctx is done
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
