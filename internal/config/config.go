package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	envIMAPHost = "MAILSWEEP_IMAP_HOST"
	envIMAPPort = "MAILSWEEP_IMAP_PORT"
	envIMAPUser = "MAILSWEEP_IMAP_USER"
	envIMAPPass = "MAILSWEEP_IMAP_PASS"
)

// Default window sizes used when neither flag nor options file sets one.
const (
	DefaultScanSize  = 50
	DefaultBatchSize = 10
)

// Options holds non-secret configuration loaded from YAML. Everything in
// it can also be set by flag; flags win.
type Options struct {
	Folder    string `yaml:"folder"`
	ScanSize  int    `yaml:"scan_size"`
	BatchSize int    `yaml:"batch_size"`
	LogFile   string `yaml:"log_file"`
}

// IMAPEnv holds the IMAP connection details from environment variables.
type IMAPEnv struct {
	Host string
	Port int
	User string
	Pass string
}

// Load reads options from a YAML file.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}

	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}

	return opts, nil
}

// Validate performs basic validation on non-secret options.
func Validate(opts Options) error {
	if opts.ScanSize < 0 {
		return errors.New("scan_size must not be negative")
	}
	if opts.BatchSize < 0 {
		return errors.New("batch_size must not be negative")
	}
	return nil
}

// IMAPEnvFromEnv loads IMAP connection details and validates required
// entries, aggregating every missing variable into one error.
func IMAPEnvFromEnv() (IMAPEnv, error) {
	missing := []string{}

	host := strings.TrimSpace(os.Getenv(envIMAPHost))
	if host == "" {
		missing = append(missing, envIMAPHost)
	}

	portRaw := strings.TrimSpace(os.Getenv(envIMAPPort))
	if portRaw == "" {
		missing = append(missing, envIMAPPort)
	}

	user := strings.TrimSpace(os.Getenv(envIMAPUser))
	if user == "" {
		missing = append(missing, envIMAPUser)
	}

	pass := strings.TrimSpace(os.Getenv(envIMAPPass))
	if pass == "" {
		missing = append(missing, envIMAPPass)
	}

	if len(missing) > 0 {
		return IMAPEnv{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return IMAPEnv{}, fmt.Errorf("invalid %s: %w", envIMAPPort, err)
	}

	return IMAPEnv{
		Host: host,
		Port: port,
		User: user,
		Pass: pass,
	}, nil
}

// Summary returns a concise options summary for session start logging.
func Summary(opts Options) string {
	return fmt.Sprintf(
		"Options summary\n"+
			"- folder: %s\n"+
			"- scan size: %d\n"+
			"- batch size: %d\n"+
			"- log file: %s",
		defaultIfEmpty(opts.Folder, "INBOX"),
		withDefault(opts.ScanSize, DefaultScanSize),
		withDefault(opts.BatchSize, DefaultBatchSize),
		defaultIfEmpty(opts.LogFile, "(stderr)"),
	)
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func withDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
