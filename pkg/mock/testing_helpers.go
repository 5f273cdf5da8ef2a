package mock

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
)

// SetupLogger sets up a logger that only outputs if the test fails
func SetupLogger(t *testing.T) *slog.Logger {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	t.Cleanup(func() {
		if t.Failed() {
			os.Stdout.Write(buf.Bytes()) //nolint:errcheck
		}
	})

	return logger
}
