package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/internal/config"
	"github.com/mailsweep/mailsweep/internal/imapclient"
	"github.com/mailsweep/mailsweep/internal/newsletter"
	"github.com/mailsweep/mailsweep/internal/opener"
	"github.com/mailsweep/mailsweep/internal/session"
)

const defaultEnvFile = ".env"

// sessionClient is the mailbox surface a command session owns: the core
// gateway plus connection teardown.
type sessionClient interface {
	newsletter.Gateway
	Close() error
}

// reviewSession bundles everything one command run needs: the connected
// gateway, the core components wired to it, and the session counters.
type reviewSession struct {
	client   sessionClient
	scanner  *newsletter.Scanner
	executor *newsletter.Executor
	prompter *session.TerminalPrompter
	counters *newsletter.Counters
	logger   *slog.Logger
	options  config.Options
	dryRun   bool
}

// openSession loads configuration, connects to the mailbox, and wires the
// scanner and executor. Callers must defer close.
func openSession(cmd *cobra.Command) (*reviewSession, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	opts, err := resolveOptions(cmd)
	if err != nil {
		return nil, err
	}

	imapEnv, err := config.IMAPEnvFromEnv()
	if err != nil {
		return nil, err
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return nil, err
	}

	logger := newLogger(opts.LogFile)
	fmt.Fprintln(cmd.OutOrStdout(), config.Summary(opts))

	client := &imapclient.Client{
		Addr:     fmt.Sprintf("%s:%d", imapEnv.Host, imapEnv.Port),
		Username: imapEnv.User,
		Password: imapEnv.Pass,
		Mailbox:  opts.Folder,
	}
	if err := client.Connect(); err != nil {
		logger.Error("session start failed", slog.Any("error", err))
		return nil, err
	}

	scanner, err := newsletter.NewScanner(
		newsletter.WithScannerGateway(client),
		newsletter.WithScannerLogger(logger),
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	executor, err := newsletter.NewExecutor(
		newsletter.WithExecutorGateway(client),
		newsletter.WithExecutorOpener(opener.Browser{}),
		newsletter.WithExecutorLogger(logger),
		newsletter.WithExecutorDryRun(dryRun),
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &reviewSession{
		client:   client,
		scanner:  scanner,
		executor: executor,
		prompter: session.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
		counters: &newsletter.Counters{},
		logger:   logger,
		options:  opts,
		dryRun:   dryRun,
	}, nil
}

// close commits pending deletions and disconnects. The summary is emitted
// unconditionally, even after an early exit or a mid-session failure. The
// expunge commit is detached from the command context: a cancellation that
// ended the session must not also abort the commit of actions the user
// already took.
func (s *reviewSession) close(cmd *cobra.Command) {
	if !s.dryRun {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		} else {
			ctx = context.WithoutCancel(ctx)
		}
		if err := s.client.Expunge(ctx); err != nil {
			s.counters.Errors++
			s.logger.Error("expunge failed", slog.Any("error", err))
		}
	}

	if err := s.client.Close(); err != nil {
		s.logger.Warn("logout failed", slog.Any("error", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"\nSession summary: %d unsubscribed, %d deleted, %d errors\n",
		s.counters.Unsubscribed, s.counters.Deleted, s.counters.Errors)
}

// resolveOptions merges the optional YAML options file with flag
// overrides; flags win.
func resolveOptions(cmd *cobra.Command) (config.Options, error) {
	var opts config.Options

	path, err := cmd.Flags().GetString("options")
	if err != nil {
		return opts, err
	}
	if strings.TrimSpace(path) != "" {
		opts, err = config.Load(path)
		if err != nil {
			return opts, err
		}
		if err := config.Validate(opts); err != nil {
			return opts, err
		}
	}

	if folder, err := cmd.Flags().GetString("folder"); err == nil && strings.TrimSpace(folder) != "" {
		opts.Folder = folder
	}
	if size, err := cmd.Flags().GetInt("size"); err == nil && size > 0 {
		opts.ScanSize = size
		opts.BatchSize = size
	}

	return opts, nil
}

func loadEnvFile() error {
	if _, err := os.Stat(defaultEnvFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(defaultEnvFile)
}

// newLogger builds the session log. When a log file is configured it
// appends there; failures to open it fall back to stderr, since logging
// must never abort the workflow.
func newLogger(path string) *slog.Logger {
	var w io.Writer = os.Stderr
	if strings.TrimSpace(path) != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w = f
		} else {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", path, err)
		}
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("options", "", "Path to YAML options file")
	cmd.Flags().String("folder", "", "Mailbox folder to scan (default INBOX)")
	cmd.Flags().Int("size", 0, "Scan window size")
	cmd.Flags().Bool("dry-run", false, "Report actions without opening links or changing the mailbox")
}
