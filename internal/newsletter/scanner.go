package newsletter

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// Scanner turns a window of message ids into deduplicated newsletter
// candidates. It is read-only on the mailbox.
type Scanner struct {
	gateway Gateway
	logger  *slog.Logger
}

type ScannerOption func(*Scanner)

func NewScanner(opts ...ScannerOption) (*Scanner, error) {
	var s Scanner
	for _, opt := range opts {
		opt(&s)
	}

	if s.gateway == nil {
		return nil, errors.New("requires gateway")
	}

	if s.logger == nil {
		return nil, errors.New("requires slogger")
	}

	return &s, nil
}

func WithScannerGateway(g Gateway) ScannerOption {
	return func(s *Scanner) {
		s.gateway = g
	}
}

func WithScannerLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// Scan fetches each message in the given order and returns the admitted
// candidates, preserving scan order. Within one call no two candidates
// share the same (sender, subject) pair; the first occurrence wins and
// later duplicates are skipped without re-classification. Messages with
// no unsubscribe header, or whose header yields no web link (mailto-only
// included), are skipped. Fetch failures are per-item: logged, counted in
// counters.Errors, and the scan continues. The returned error is reserved
// for context cancellation.
func (s *Scanner) Scan(ctx context.Context, ids []MessageID, counters *Counters) ([]Candidate, error) {
	seen := make(map[string]struct{}, len(ids))
	candidates := make([]Candidate, 0, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return candidates, err
		}

		msg, err := s.gateway.Fetch(ctx, id)
		if err != nil {
			counters.Errors++
			s.logger.Error("fetch failed", slog.Uint64("id", uint64(id)), slog.Any("error", err))
			continue
		}

		key := msg.Subject + "|" + msg.Sender
		if _, ok := seen[key]; ok {
			s.logger.Debug("skipping duplicate sender/subject", slog.String("sender", msg.Sender), slog.String("subject", msg.Subject))
			continue
		}
		seen[key] = struct{}{}

		if msg.Unsubscribe == "" {
			s.logger.Debug("no unsubscribe header", slog.Uint64("id", uint64(id)))
			continue
		}

		web, all := ClassifyLinks(msg.Unsubscribe)
		if len(web) == 0 {
			// Mailto-only and malformed headers never become candidates.
			s.logger.Debug("no web unsubscribe link", slog.Uint64("id", uint64(id)), slog.Int("targets", len(all)))
			continue
		}

		candidates = append(candidates, Candidate{
			ID:       id,
			Sender:   msg.Sender,
			Subject:  msg.Subject,
			WebLinks: web,
			AllLinks: all,
		})
	}

	return candidates, nil
}
