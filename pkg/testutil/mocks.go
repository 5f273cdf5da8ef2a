// Package testutil provides testing utilities and mocks shared across
// test files. The mocks use injectable function fields so each test can
// script exactly the behavior it needs.
package testutil

import (
	"context"

	"github.com/mailsweep/mailsweep/internal/newsletter"
	"github.com/mailsweep/mailsweep/internal/session"
)

// MockGateway implements newsletter.Gateway with function fields.
type MockGateway struct {
	ListUnseenIDsFunc func(ctx context.Context) ([]newsletter.MessageID, error)
	FetchFunc         func(ctx context.Context, id newsletter.MessageID) (newsletter.Message, error)
	MarkDeletedFunc   func(ctx context.Context, id newsletter.MessageID) error
	ExpungeFunc       func(ctx context.Context) error

	// Track calls for verification.
	MarkDeletedIDs []newsletter.MessageID
	ExpungeCalled  bool
}

func (m *MockGateway) ListUnseenIDs(ctx context.Context) ([]newsletter.MessageID, error) {
	if m.ListUnseenIDsFunc != nil {
		return m.ListUnseenIDsFunc(ctx)
	}
	return nil, nil
}

func (m *MockGateway) Fetch(ctx context.Context, id newsletter.MessageID) (newsletter.Message, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, id)
	}
	return newsletter.Message{ID: id}, nil
}

func (m *MockGateway) MarkDeleted(ctx context.Context, id newsletter.MessageID) error {
	m.MarkDeletedIDs = append(m.MarkDeletedIDs, id)
	if m.MarkDeletedFunc != nil {
		return m.MarkDeletedFunc(ctx, id)
	}
	return nil
}

func (m *MockGateway) Expunge(ctx context.Context) error {
	m.ExpungeCalled = true
	if m.ExpungeFunc != nil {
		return m.ExpungeFunc(ctx)
	}
	return nil
}

// MockOpener implements newsletter.LinkOpener with a function field and
// records every opened URL.
type MockOpener struct {
	OpenFunc func(url string) error
	Opened   []string
}

func (m *MockOpener) Open(url string) error {
	m.Opened = append(m.Opened, url)
	if m.OpenFunc != nil {
		return m.OpenFunc(url)
	}
	return nil
}

// ExecutedAction records one executor invocation.
type ExecutedAction struct {
	Candidate newsletter.Candidate
	Action    newsletter.Action
}

// MockExecutor implements session.ActionExecutor with a function field
// and records every invocation in order.
type MockExecutor struct {
	ExecuteFunc func(ctx context.Context, c newsletter.Candidate, action newsletter.Action, counters *newsletter.Counters) error
	Executed    []ExecutedAction
}

func (m *MockExecutor) Execute(ctx context.Context, c newsletter.Candidate, action newsletter.Action, counters *newsletter.Counters) error {
	m.Executed = append(m.Executed, ExecutedAction{Candidate: c, Action: action})
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, c, action, counters)
	}
	switch action {
	case newsletter.ActionUnsubscribe:
		counters.Unsubscribed++
	case newsletter.ActionDeleteOnly:
		counters.Deleted++
	}
	return nil
}

// MockScanner implements session.CandidateScanner with a function field
// and records the id window of every scan.
type MockScanner struct {
	ScanFunc func(ctx context.Context, ids []newsletter.MessageID, counters *newsletter.Counters) ([]newsletter.Candidate, error)
	Windows  [][]newsletter.MessageID
}

func (m *MockScanner) Scan(ctx context.Context, ids []newsletter.MessageID, counters *newsletter.Counters) ([]newsletter.Candidate, error) {
	window := make([]newsletter.MessageID, len(ids))
	copy(window, ids)
	m.Windows = append(m.Windows, window)

	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, ids, counters)
	}
	candidates := make([]newsletter.Candidate, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, newsletter.Candidate{
			ID:       id,
			Sender:   "sender",
			Subject:  "subject",
			WebLinks: []string{"https://example.com/u"},
			AllLinks: []string{"https://example.com/u"},
		})
	}
	return candidates, nil
}

// ScriptedPrompter implements session.Prompter by replaying canned
// responses. It records every notification and each window the menu was
// shown for.
type ScriptedPrompter struct {
	Decisions  []session.Decision
	Menus      []session.MenuChoice
	MenuErrs   []error
	Selections []string

	Notifications []string
	MenuWindows   [][]newsletter.Candidate
	MenuOffsets   []int

	decideIdx    int
	menuIdx      int
	selectionIdx int
}

func (p *ScriptedPrompter) Decide(_ newsletter.Candidate, _, _ int) (session.Decision, error) {
	if p.decideIdx >= len(p.Decisions) {
		return session.DecisionExit, nil
	}
	d := p.Decisions[p.decideIdx]
	p.decideIdx++
	return d, nil
}

func (p *ScriptedPrompter) Menu(offset int, candidates []newsletter.Candidate) (session.MenuChoice, error) {
	p.MenuOffsets = append(p.MenuOffsets, offset)
	snapshot := make([]newsletter.Candidate, len(candidates))
	copy(snapshot, candidates)
	p.MenuWindows = append(p.MenuWindows, snapshot)

	if p.menuIdx >= len(p.Menus) {
		return session.MenuExit, nil
	}
	i := p.menuIdx
	p.menuIdx++
	if i < len(p.MenuErrs) && p.MenuErrs[i] != nil {
		return 0, p.MenuErrs[i]
	}
	return p.Menus[i], nil
}

func (p *ScriptedPrompter) Selection() (string, error) {
	if p.selectionIdx >= len(p.Selections) {
		return "exit", nil
	}
	s := p.Selections[p.selectionIdx]
	p.selectionIdx++
	return s, nil
}

func (p *ScriptedPrompter) Notify(format string, _ ...any) {
	p.Notifications = append(p.Notifications, format)
}
