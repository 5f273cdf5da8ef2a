package session

import (
	"context"

	"github.com/mailsweep/mailsweep/internal/newsletter"
)

// Decision is the per-candidate response in interactive mode.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionUnsubscribe
	DecisionDelete
	DecisionExit
)

// MenuChoice is the per-window response in batch mode. Values match the
// 1-based menu the terminal front end presents.
type MenuChoice int

const (
	MenuSelect MenuChoice = iota + 1
	MenuSelectAll
	MenuDeleteSelect
	MenuNextWindow
	MenuRestart
	MenuExit
)

// Prompter is the front end driving a session. The controllers never read
// the terminal themselves, so a session can be driven by a script or a
// test harness as easily as by a user.
type Prompter interface {
	// Decide asks for an action on a single candidate. position and total
	// are 1-based progress markers.
	Decide(c newsletter.Candidate, position, total int) (Decision, error)
	// Menu presents the current window and asks for a bulk action.
	Menu(offset int, candidates []newsletter.Candidate) (MenuChoice, error)
	// Selection reads a raw index-selection line.
	Selection() (string, error)
	// Notify reports progress or input errors to the user.
	Notify(format string, args ...any)
}

// ActionExecutor applies one action to one candidate. Satisfied by
// *newsletter.Executor.
type ActionExecutor interface {
	Execute(ctx context.Context, candidate newsletter.Candidate, action newsletter.Action, counters *newsletter.Counters) error
}

// CandidateScanner produces candidates for a window of message ids.
// Satisfied by *newsletter.Scanner.
type CandidateScanner interface {
	Scan(ctx context.Context, ids []newsletter.MessageID, counters *newsletter.Counters) ([]newsletter.Candidate, error)
}
