package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/internal/config"
	"github.com/mailsweep/mailsweep/internal/session"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review newsletters one at a time and unsubscribe interactively",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close(cmd)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		ids, err := sess.client.ListUnseenIDs(ctx)
		if err != nil {
			return err
		}

		// Newest messages are the relevant ones for a manual walk; take
		// the tail of the unseen sequence.
		size := sess.options.ScanSize
		if size <= 0 {
			size = config.DefaultScanSize
		}
		if len(ids) > size {
			ids = ids[len(ids)-size:]
		}

		candidates, err := sess.scanner.Scan(ctx, ids, sess.counters)
		if err != nil {
			return err
		}
		sess.logger.Info("scan complete",
			slog.Int("unseen", len(ids)),
			slog.Int("candidates", len(candidates)))

		if len(candidates) == 0 {
			sess.prompter.Notify("No newsletters with unsubscribe links found.")
			return nil
		}

		controller, err := session.NewInteractiveController(
			session.WithInteractiveExecutor(sess.executor),
			session.WithInteractivePrompter(sess.prompter),
			session.WithInteractiveLogger(sess.logger),
		)
		if err != nil {
			return err
		}

		return controller.Run(ctx, candidates, sess.counters)
	},
}

func init() {
	addSessionFlags(reviewCmd)
}
