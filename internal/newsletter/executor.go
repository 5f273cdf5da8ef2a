package newsletter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// Action is the operation to apply to a single candidate.
type Action int

const (
	// ActionUnsubscribe opens the candidate's first web link and marks the
	// message for deletion.
	ActionUnsubscribe Action = iota
	// ActionDeleteOnly marks the message for deletion without opening
	// anything.
	ActionDeleteOnly
)

func (a Action) String() string {
	switch a {
	case ActionUnsubscribe:
		return "unsubscribe"
	case ActionDeleteOnly:
		return "delete"
	default:
		return "unknown"
	}
}

// ActionErrorKind discriminates per-item failures.
type ActionErrorKind int

const (
	LinkOpenFailed ActionErrorKind = iota
	FlagMutationFailed
)

func (k ActionErrorKind) String() string {
	switch k {
	case LinkOpenFailed:
		return "link open failed"
	case FlagMutationFailed:
		return "flag mutation failed"
	default:
		return "unknown failure"
	}
}

// ActionError reports a failed action against one candidate. These are
// never fatal; callers count them and continue.
type ActionError struct {
	Kind  ActionErrorKind
	Cause error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// Executor performs a single action against a candidate, updating session
// counters and reporting per-item success or failure. Side effects are
// external and are not rolled back on partial failure; a browser may open
// even though the subsequent flag mutation fails.
type Executor struct {
	gateway Gateway
	opener  LinkOpener
	logger  *slog.Logger
	dryRun  bool
}

type ExecutorOption func(*Executor)

func NewExecutor(opts ...ExecutorOption) (*Executor, error) {
	var e Executor
	for _, opt := range opts {
		opt(&e)
	}

	if e.gateway == nil {
		return nil, errors.New("requires gateway")
	}

	if e.opener == nil {
		return nil, errors.New("requires link opener")
	}

	if e.logger == nil {
		return nil, errors.New("requires slogger")
	}

	return &e, nil
}

func WithExecutorGateway(g Gateway) ExecutorOption {
	return func(e *Executor) {
		e.gateway = g
	}
}

func WithExecutorOpener(o LinkOpener) ExecutorOption {
	return func(e *Executor) {
		e.opener = o
	}
}

func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithExecutorDryRun reports actions without opening links or mutating
// flags.
func WithExecutorDryRun(dryRun bool) ExecutorOption {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// Execute applies action to candidate. On success the matching counter is
// incremented; on failure counters.Errors is incremented and a typed
// *ActionError is returned so the caller can decide whether the candidate
// stays visible.
func (e *Executor) Execute(ctx context.Context, candidate Candidate, action Action, counters *Counters) error {
	switch action {
	case ActionUnsubscribe:
		return e.unsubscribe(ctx, candidate, counters)
	case ActionDeleteOnly:
		return e.deleteOnly(ctx, candidate, counters)
	default:
		return errors.Errorf("unsupported action %d", action)
	}
}

func (e *Executor) unsubscribe(ctx context.Context, candidate Candidate, counters *Counters) error {
	link := candidate.WebLinks[0]

	if e.dryRun {
		e.logger.Info("dry run: would unsubscribe",
			slog.String("sender", candidate.Sender),
			slog.String("link", link))
		counters.Unsubscribed++
		return nil
	}

	if err := e.opener.Open(link); err != nil {
		counters.Errors++
		e.logger.Error("failed to open unsubscribe link",
			slog.String("link", link),
			slog.Any("error", err))
		return &ActionError{Kind: LinkOpenFailed, Cause: err}
	}

	if err := e.gateway.MarkDeleted(ctx, candidate.ID); err != nil {
		counters.Errors++
		e.logger.Error("failed to flag message for deletion",
			slog.Uint64("id", uint64(candidate.ID)),
			slog.Any("error", err))
		return &ActionError{Kind: FlagMutationFailed, Cause: err}
	}

	counters.Unsubscribed++
	e.logger.Info("unsubscribed",
		slog.String("sender", candidate.Sender),
		slog.String("subject", candidate.Subject))
	return nil
}

func (e *Executor) deleteOnly(ctx context.Context, candidate Candidate, counters *Counters) error {
	if e.dryRun {
		e.logger.Info("dry run: would delete",
			slog.String("sender", candidate.Sender),
			slog.String("subject", candidate.Subject))
		counters.Deleted++
		return nil
	}

	if err := e.gateway.MarkDeleted(ctx, candidate.ID); err != nil {
		counters.Errors++
		e.logger.Error("failed to flag message for deletion",
			slog.Uint64("id", uint64(candidate.ID)),
			slog.Any("error", err))
		return &ActionError{Kind: FlagMutationFailed, Cause: err}
	}

	counters.Deleted++
	e.logger.Info("deleted",
		slog.String("sender", candidate.Sender),
		slog.String("subject", candidate.Subject))
	return nil
}
