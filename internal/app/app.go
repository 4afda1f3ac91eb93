// Package app wires configuration, alert channels, the phase timer, and the
// control socket behind each debatebell command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/rbright/debatebell/internal/audio"
	"github.com/rbright/debatebell/internal/cli"
	"github.com/rbright/debatebell/internal/config"
	"github.com/rbright/debatebell/internal/doctor"
	"github.com/rbright/debatebell/internal/logging"
	"github.com/rbright/debatebell/internal/version"
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("reported")

// Runner executes one debatebell invocation. It implements cli.Handler.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute returns 0 on success, 2 for a malformed command line, and 1 otherwise.
func (r Runner) Execute(ctx context.Context, args []string) int {
	root := cli.NewRoot(r)
	root.SetOut(r.Stdout)
	root.SetErr(r.Stderr)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if cli.IsUsage(err) {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cmd.UsageString())
		return 2
	}
	if !errors.Is(err, errReported) {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
	}
	return 1
}

// env is the per-command runtime: logger and loaded config.
type env struct {
	logger *slog.Logger
	cfg    config.Loaded
	close  func()
}

func (r Runner) prepare(g cli.Globals, command string) (env, error) {
	logRuntime, err := logging.New(g.Debug)
	if err != nil {
		return env{}, fmt.Errorf("setup logging: %w", err)
	}

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(g.ConfigPath)
	if err != nil {
		logger.Error("load config failed", "error", err.Error())
		_ = logRuntime.Close()
		return env{}, err
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)
	return env{
		logger: logger,
		cfg:    cfgLoaded,
		close:  func() { _ = logRuntime.Close() },
	}, nil
}

func (r Runner) Version(context.Context) error {
	fmt.Fprintln(r.Stdout, version.String())
	return nil
}

func (r Runner) Doctor(ctx context.Context, g cli.Globals) error {
	e, err := r.prepare(g, "doctor")
	if err != nil {
		return err
	}
	defer e.close()

	report := doctor.Run(ctx, e.cfg)
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return errReported
	}
	return nil
}

func (r Runner) Devices(ctx context.Context, _ cli.Globals) error {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio output devices found")
		return errReported
	}

	w := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEFAULT\tID\tDESCRIPTION\tSTATE\tAVAILABLE\tMUTED")
	for _, device := range devices {
		defaultMark := ""
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return w.Flush()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
