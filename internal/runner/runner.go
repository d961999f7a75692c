package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Tool identifies which external collaborator an invocation targets.
type Tool string

const (
	ToolTrainer  Tool = "trainer"
	ToolBuilder  Tool = "builder"
	ToolStats    Tool = "stats"
	ToolTabulate Tool = "tabulate"
)

var (
	ErrTrainerInvocation  = errors.New("trainer invocation failed")
	ErrBuilderInvocation  = errors.New("builder invocation failed")
	ErrStatsInvocation    = errors.New("stats invocation failed")
	ErrTabulateInvocation = errors.New("tabulate invocation failed")
)

var toolErrors = map[Tool]error{
	ToolTrainer:  ErrTrainerInvocation,
	ToolBuilder:  ErrBuilderInvocation,
	ToolStats:    ErrStatsInvocation,
	ToolTabulate: ErrTabulateInvocation,
}

// Invocation is one synchronous call of an external executable.
type Invocation struct {
	Tool   Tool
	Path   string
	Args   []string
	Stdout io.Writer
}

// CommandLine renders the invocation for logs and error messages.
func (inv Invocation) CommandLine() string {
	return strings.TrimSpace(inv.Path + " " + strings.Join(inv.Args, " "))
}

// InvocationError describes an external process that could not be started,
// exited non-zero, or timed out.
type InvocationError struct {
	Tool     Tool
	Command  string
	ExitCode int
	Stderr   string
	Timeout  bool
	Err      error
}

func (e *InvocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <%s>", e.Tool, e.Command)
	switch {
	case e.Timeout:
		b.WriteString(" timed out")
	case e.ExitCode >= 0:
		fmt.Fprintf(&b, " exited with code %d", e.ExitCode)
	default:
		fmt.Fprintf(&b, " failed: %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, ": %s", stderr)
	}
	return b.String()
}

func (e *InvocationError) Is(target error) bool {
	return toolErrors[e.Tool] == target
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// Exec runs invocations as child processes. A zero Timeout means no limit.
type Exec struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

func (r *Exec) Run(ctx context.Context, inv Invocation) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Stdout = inv.Stdout
	cmd.Stderr = &stderr
	// grandchildren may keep the output pipes open after a kill
	cmd.WaitDelay = time.Second

	if r.Logger != nil {
		r.Logger.Debug("running", "tool", inv.Tool, "command", inv.CommandLine())
	}

	start := time.Now()
	err := cmd.Run()
	if r.Logger != nil {
		r.Logger.Debug("finished", "tool", inv.Tool, "elapsed", time.Since(start), "error", err)
	}
	if err == nil {
		return nil
	}

	invErr := &InvocationError{
		Tool:     inv.Tool,
		Command:  inv.CommandLine(),
		ExitCode: -1,
		Stderr:   stderr.String(),
		Err:      err,
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		invErr.Timeout = true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !invErr.Timeout {
		invErr.ExitCode = exitErr.ExitCode()
	}
	return invErr
}

// Output runs inv and returns its standard output.
func Output(ctx context.Context, r Runner, inv Invocation) (string, error) {
	var stdout bytes.Buffer
	inv.Stdout = &stdout
	if err := r.Run(ctx, inv); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
