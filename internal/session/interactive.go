package session

import (
	"context"
	"io"
	"log/slog"

	"github.com/mailsweep/mailsweep/internal/newsletter"
	"github.com/pkg/errors"
)

// InteractiveController walks the full deduplicated candidate list once,
// prompting per item. Executor failures never halt the walk; the user
// terminates early with the exit response.
type InteractiveController struct {
	executor ActionExecutor
	prompter Prompter
	logger   *slog.Logger
}

type InteractiveOption func(*InteractiveController)

func NewInteractiveController(opts ...InteractiveOption) (*InteractiveController, error) {
	var c InteractiveController
	for _, opt := range opts {
		opt(&c)
	}

	if c.executor == nil {
		return nil, errors.New("requires executor")
	}

	if c.prompter == nil {
		return nil, errors.New("requires prompter")
	}

	if c.logger == nil {
		return nil, errors.New("requires slogger")
	}

	return &c, nil
}

func WithInteractiveExecutor(e ActionExecutor) InteractiveOption {
	return func(c *InteractiveController) {
		c.executor = e
	}
}

func WithInteractivePrompter(p Prompter) InteractiveOption {
	return func(c *InteractiveController) {
		c.prompter = p
	}
}

func WithInteractiveLogger(logger *slog.Logger) InteractiveOption {
	return func(c *InteractiveController) {
		c.logger = logger
	}
}

// Run prompts for each candidate in scan order. Counters accumulated
// before an early exit are preserved for the caller's summary.
func (c *InteractiveController) Run(ctx context.Context, candidates []newsletter.Candidate, counters *newsletter.Counters) error {
	total := len(candidates)
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		decision, err := c.prompter.Decide(candidate, i+1, total)
		if err != nil {
			// End of input behaves like an explicit exit.
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch decision {
		case DecisionUnsubscribe:
			// Errors are already counted and logged by the executor; the
			// walk advances regardless.
			_ = c.executor.Execute(ctx, candidate, newsletter.ActionUnsubscribe, counters)
		case DecisionDelete:
			_ = c.executor.Execute(ctx, candidate, newsletter.ActionDeleteOnly, counters)
		case DecisionExit:
			c.logger.Info("interactive session ended early", slog.Int("reviewed", i))
			return nil
		case DecisionSkip:
			c.logger.Debug("skipped", slog.String("sender", candidate.Sender))
		}
	}
	return nil
}
