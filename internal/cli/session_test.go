package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/internal/newsletter"
	"github.com/mailsweep/mailsweep/pkg/mock"
	"github.com/mailsweep/mailsweep/pkg/testutil"
)

func TestReviewFailsWithoutEnvironment(t *testing.T) {
	t.Setenv("MAILSWEEP_IMAP_HOST", "")
	t.Setenv("MAILSWEEP_IMAP_PORT", "")
	t.Setenv("MAILSWEEP_IMAP_USER", "")
	t.Setenv("MAILSWEEP_IMAP_PASS", "")

	rootCmd.SetArgs([]string{"review"})
	var output bytes.Buffer
	rootCmd.SetOut(&output)
	rootCmd.SetErr(&output)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected review to fail without IMAP environment")
	}
	if !strings.Contains(err.Error(), "missing required environment variables") {
		t.Fatalf("expected missing env var error, got: %v", err)
	}
}

func TestBatchRejectsInvalidOptionsFile(t *testing.T) {
	t.Setenv("MAILSWEEP_IMAP_HOST", "imap.example.com")
	t.Setenv("MAILSWEEP_IMAP_PORT", "993")
	t.Setenv("MAILSWEEP_IMAP_USER", "user@example.com")
	t.Setenv("MAILSWEEP_IMAP_PASS", "password")

	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	if err := os.WriteFile(path, []byte(`
batch_size: -5
`), 0o600); err != nil {
		t.Fatalf("write options: %v", err)
	}

	rootCmd.SetArgs([]string{"batch", "--options", path})
	var output bytes.Buffer
	rootCmd.SetOut(&output)
	rootCmd.SetErr(&output)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected batch to fail with invalid options")
	}
	if !strings.Contains(err.Error(), "batch_size") {
		t.Fatalf("expected batch_size error, got: %v", err)
	}
}

func TestSessionStartPrintsOptionsSummary(t *testing.T) {
	t.Setenv("MAILSWEEP_IMAP_HOST", "127.0.0.1")
	t.Setenv("MAILSWEEP_IMAP_PORT", "1")
	t.Setenv("MAILSWEEP_IMAP_USER", "user@example.com")
	t.Setenv("MAILSWEEP_IMAP_PASS", "password")

	rootCmd.SetArgs([]string{"review"})
	var output bytes.Buffer
	rootCmd.SetOut(&output)
	rootCmd.SetErr(&output)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected review to fail against an unreachable server")
	}
	if !strings.Contains(output.String(), "Options summary") {
		t.Fatalf("expected options summary before connecting, got:\n%s", output.String())
	}
}

type fakeSessionClient struct {
	*testutil.MockGateway
	closed bool
}

func (f *fakeSessionClient) Close() error {
	f.closed = true
	return nil
}

func TestCloseCommitsDeletionsAfterCancellation(t *testing.T) {
	var expungeCtxErr error
	gateway := &testutil.MockGateway{
		ExpungeFunc: func(ctx context.Context) error {
			expungeCtxErr = ctx.Err()
			return nil
		},
	}
	client := &fakeSessionClient{MockGateway: gateway}

	sess := &reviewSession{
		client:   client,
		counters: &newsletter.Counters{Unsubscribed: 2},
		logger:   mock.SetupLogger(t),
	}

	cmd := &cobra.Command{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd.SetContext(ctx)
	var output bytes.Buffer
	cmd.SetOut(&output)

	sess.close(cmd)

	if !gateway.ExpungeCalled {
		t.Fatal("expected expunge at session close")
	}
	if expungeCtxErr != nil {
		t.Fatalf("expected a live context for the closing expunge, got: %v", expungeCtxErr)
	}
	if !client.closed {
		t.Fatal("expected the client to be closed")
	}
	if sess.counters.Errors != 0 {
		t.Fatalf("expected no errors from close, got %d", sess.counters.Errors)
	}
	if !strings.Contains(output.String(), "Session summary: 2 unsubscribed") {
		t.Fatalf("expected session summary, got:\n%s", output.String())
	}
}
