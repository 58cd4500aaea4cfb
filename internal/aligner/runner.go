// Package aligner runs the external nucamino aligner and decodes its JSON report.
package aligner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// DefaultBinary is the aligner executable looked up on PATH.
const DefaultBinary = "nucamino"

// DefaultTimeout bounds a single alignment call.
const DefaultTimeout = 60 * time.Second

var (
	// ErrTimeout is returned when the aligner had to be killed.
	ErrTimeout = errors.New("aligner timed out")
	// ErrMalformedOutput is returned when stdout is empty or not a JSON report.
	ErrMalformedOutput = errors.New("malformed aligner output")
)

// ExitError is returned when the aligner exits with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("aligner exited with status %d", e.Code)
	}
	return fmt.Sprintf("aligner exited with status %d: %s", e.Code, e.Stderr)
}

// Runner invokes the aligner binary.
type Runner struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a runner. Empty or zero arguments select the defaults.
func New(binary string, timeout time.Duration) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{binary: binary, timeout: timeout, logger: zap.NewNop()}
}

// SetLogger sets the logger for debug and warning messages.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Align runs "<binary> align <profile> <genes> -f json" with fasta on stdin
// and decodes the report. The process is killed when the timeout expires.
func (r *Runner) Align(ctx context.Context, profile string, genes []string, fasta io.Reader) (Report, error) {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return nil, fmt.Errorf("locate aligner %q: %w", r.binary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"align", profile, strings.Join(genes, ","), "-f", "json"}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdin = fasta
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	r.logger.Debug("running aligner", zap.String("path", path), zap.Strings("args", args))
	err = cmd.Run()
	dur := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("aligner killed after timeout",
			zap.Duration("timeout", r.timeout),
			zap.Int("stdout_bytes", stdout.Len()))
		return nil, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return nil, fmt.Errorf("run aligner: %w", err)
	}

	r.logger.Debug("aligner finished",
		zap.Duration("duration", dur),
		zap.Int("stdout_bytes", stdout.Len()))

	return decodeReport(stdout.Bytes())
}

func decodeReport(data []byte) (Report, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return report, nil
}
