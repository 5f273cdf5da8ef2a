package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/internal/config"
	"github.com/mailsweep/mailsweep/internal/session"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Review newsletters in fixed-size batches with bulk actions",
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

		size := sess.options.BatchSize
		if size <= 0 {
			size = config.DefaultBatchSize
		}

		controller, err := session.NewBatchController(
			session.WithBatchGateway(sess.client),
			session.WithBatchScanner(sess.scanner),
			session.WithBatchExecutor(sess.executor),
			session.WithBatchPrompter(sess.prompter),
			session.WithBatchLogger(sess.logger),
			session.WithBatchSize(size),
		)
		if err != nil {
			return err
		}

		return controller.Run(ctx, sess.counters)
	},
}

func init() {
	addSessionFlags(batchCmd)
}
