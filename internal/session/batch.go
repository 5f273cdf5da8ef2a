package session

import (
	"context"
	"io"
	"log/slog"

	"github.com/mailsweep/mailsweep/internal/newsletter"
	"github.com/pkg/errors"
)

// Window is the bounded slice of unseen messages considered in one batch
// pass. It is created at offset 0, advanced by Size on "next batch",
// reset to 0 on "restart", and never rewound below 0. An advance is
// refused when the new offset would reach or pass the unseen count, so
// the window never lands on an empty slice; the last populated window
// stays current instead.
type Window struct {
	Offset int
	Size   int
}

// Slice returns the portion of ids covered by the window.
func (w Window) Slice(ids []newsletter.MessageID) []newsletter.MessageID {
	if w.Offset >= len(ids) {
		return nil
	}
	end := w.Offset + w.Size
	if end > len(ids) {
		end = len(ids)
	}
	return ids[w.Offset:end]
}

// BatchController re-scans the mailbox in fixed-size offset-advancing
// windows and applies bulk actions to the current window. The candidate
// list for a window is exclusively owned by the controller and discarded
// once the window advances or restarts; stale lists are never reused.
type BatchController struct {
	gateway  newsletter.Gateway
	scanner  CandidateScanner
	executor ActionExecutor
	prompter Prompter
	logger   *slog.Logger
	size     int
}

type BatchOption func(*BatchController)

func NewBatchController(opts ...BatchOption) (*BatchController, error) {
	var c BatchController
	for _, opt := range opts {
		opt(&c)
	}

	if c.gateway == nil {
		return nil, errors.New("requires gateway")
	}

	if c.scanner == nil {
		return nil, errors.New("requires scanner")
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

	if c.size <= 0 {
		return nil, errors.New("requires positive window size")
	}

	return &c, nil
}

func WithBatchGateway(g newsletter.Gateway) BatchOption {
	return func(c *BatchController) {
		c.gateway = g
	}
}

func WithBatchScanner(s CandidateScanner) BatchOption {
	return func(c *BatchController) {
		c.scanner = s
	}
}

func WithBatchExecutor(e ActionExecutor) BatchOption {
	return func(c *BatchController) {
		c.executor = e
	}
}

func WithBatchPrompter(p Prompter) BatchOption {
	return func(c *BatchController) {
		c.prompter = p
	}
}

func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(c *BatchController) {
		c.logger = logger
	}
}

func WithBatchSize(size int) BatchOption {
	return func(c *BatchController) {
		c.size = size
	}
}

// Run drives the batch review loop until the user exits or input ends.
// Counters accumulated before an early exit are preserved.
func (c *BatchController) Run(ctx context.Context, counters *newsletter.Counters) error {
	window := Window{Offset: 0, Size: c.size}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := c.gateway.ListUnseenIDs(ctx)
		if err != nil {
			return errors.Wrap(err, "listing unseen messages")
		}
		total := len(ids)

		candidates, err := c.scanner.Scan(ctx, window.Slice(ids), counters)
		if err != nil {
			return err
		}
		c.logger.Info("scanned batch window",
			slog.Int("offset", window.Offset),
			slog.Int("unseen", total),
			slog.Int("candidates", len(candidates)))

		exit, err := c.reviewWindow(ctx, &window, total, candidates, counters)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if exit {
			return nil
		}
	}
}

// reviewWindow runs the menu loop over one window's candidate list until
// the window advances or restarts (exit=false, caller rescans with the
// updated offset) or the user exits (exit=true).
func (c *BatchController) reviewWindow(ctx context.Context, window *Window, total int, candidates []newsletter.Candidate, counters *newsletter.Counters) (exit bool, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		choice, err := c.prompter.Menu(window.Offset, candidates)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				c.prompter.Notify("Please choose an option between 1 and 6.")
				continue
			}
			return false, err
		}

		switch choice {
		case MenuSelect, MenuDeleteSelect:
			action := newsletter.ActionUnsubscribe
			if choice == MenuDeleteSelect {
				action = newsletter.ActionDeleteOnly
			}
			var outcome selectionOutcome
			candidates, outcome, err = c.applySelection(ctx, candidates, action, counters)
			if err != nil {
				return false, err
			}
			switch outcome {
			case selectionRestart:
				window.Offset = 0
				return false, nil
			case selectionExit:
				return true, nil
			}

		case MenuSelectAll:
			candidates = c.applyAll(ctx, candidates, counters)

		case MenuNextWindow:
			if window.Offset+window.Size >= total {
				c.prompter.Notify("No more batches.")
				continue
			}
			window.Offset += window.Size
			return false, nil

		case MenuRestart:
			window.Offset = 0
			return false, nil

		case MenuExit:
			return true, nil
		}
	}
}

// selectionOutcome reports how an index-selection prompt resolved.
type selectionOutcome int

const (
	selectionApplied selectionOutcome = iota
	selectionRestart
	selectionExit
)

// applySelection prompts for indices and applies action to each selected
// candidate, highest index first. A candidate leaves the list only when
// its action fully succeeded, so failed entries stay visible for retry.
func (c *BatchController) applySelection(ctx context.Context, candidates []newsletter.Candidate, action newsletter.Action, counters *newsletter.Counters) ([]newsletter.Candidate, selectionOutcome, error) {
	input, err := c.prompter.Selection()
	if err != nil {
		return candidates, selectionApplied, err
	}

	indices, sentinel, perr := ParseSelection(input, len(candidates))
	switch sentinel {
	case SentinelRestart:
		return candidates, selectionRestart, nil
	case SentinelExit:
		return candidates, selectionExit, nil
	}
	if perr != nil {
		c.prompter.Notify("Invalid selection: %v", perr)
		return candidates, selectionApplied, nil
	}

	for _, idx := range indices {
		i := idx - 1
		if execErr := c.executor.Execute(ctx, candidates[i], action, counters); execErr != nil {
			continue
		}
		candidates = append(candidates[:i], candidates[i+1:]...)
	}
	return candidates, selectionApplied, nil
}

// applyAll unsubscribes from every remaining candidate in window order,
// keeping only the ones whose action failed.
func (c *BatchController) applyAll(ctx context.Context, candidates []newsletter.Candidate, counters *newsletter.Counters) []newsletter.Candidate {
	kept := make([]newsletter.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if err := c.executor.Execute(ctx, candidate, newsletter.ActionUnsubscribe, counters); err != nil {
			kept = append(kept, candidate)
		}
	}
	return kept
}
