package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ftahirops/drivelog/model"
)

// DefaultTimeout bounds one smartctl run.
const DefaultTimeout = 60 * time.Second

// InvocationError means smartctl produced no output at all: the binary is
// missing, was killed, or timed out.
type InvocationError struct {
	Device   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("run smartctl for %s: %v", e.Device, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ErrTimeout is wrapped by InvocationError when the run hit its deadline.
var ErrTimeout = errors.New("smartctl timed out")

// runFunc runs a command and returns stdout, stderr and the exit code.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)

// Smartctl invokes `smartctl -a -j <device> -d <kind>` and decodes its JSON.
type Smartctl struct {
	Path    string
	Timeout time.Duration

	run runFunc
}

// NewSmartctl returns an invoker for the binary at path. An empty path
// uses DefaultSmartctlPath, a zero timeout DefaultTimeout.
func NewSmartctl(path string, timeout time.Duration) *Smartctl {
	if path == "" {
		path = DefaultSmartctlPath()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Smartctl{Path: path, Timeout: timeout, run: runCommand}
}

// Args returns the smartctl arguments for a target.
func (s *Smartctl) Args(target model.DriveTarget) []string {
	args := []string{"-a", "-j", target.Device}
	if target.Kind != "" {
		args = append(args, "-d", target.Kind)
	}
	return args
}

// Invoke runs smartctl for target. smartctl's exit code is its status
// bitmask, so a non-zero exit is not an error as long as JSON came out.
func (s *Smartctl) Invoke(ctx context.Context, target model.DriveTarget) (model.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	stdout, stderr, code, err := s.run(ctx, s.Path, s.Args(target)...)
	if len(bytes.TrimSpace(stdout)) == 0 {
		if err == nil {
			err = errors.New("empty output")
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, &InvocationError{
			Device:   target.Device,
			ExitCode: code,
			Stderr:   string(bytes.TrimSpace(stderr)),
			Err:      err,
		}
	}
	return DecodeReport(stdout)
}

// DecodeReport parses smartctl JSON output. The device and smartctl blocks
// must be present and well formed.
func DecodeReport(data []byte) (model.Report, error) {
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, &model.MalformedReportError{Key: "json", Err: err}
	}
	if report == nil {
		return nil, &model.MalformedReportError{Key: "json", Err: errors.New("null document")}
	}
	if _, err := report.Header(); err != nil {
		return nil, err
	}
	return report, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	return stdout.Bytes(), stderr.Bytes(), code, err
}
