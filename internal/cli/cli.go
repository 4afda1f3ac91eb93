// Package cli defines the debatebell command tree. Parsing lives here; the
// work behind each command is done by a Handler.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/ipc"
	"github.com/rbright/debatebell/internal/prepbells"
)

const (
	DefaultSpeechLength = 7 * time.Minute
	DefaultPrepLength   = 15 * time.Minute
	maxRings            = 9
)

// Globals are the flags shared by every command.
type Globals struct {
	ConfigPath string
	Debug      bool
}

// RunOptions describes the phase `run` should time.
type RunOptions struct {
	Name     string
	Length   time.Duration
	Prep     bool
	Bells    []bell.Event
	POIs     bool
	NoTUI    bool
	EndAfter time.Duration
}

// Handler performs parsed commands.
type Handler interface {
	Run(ctx context.Context, g Globals, opts RunOptions) error
	Forward(ctx context.Context, g Globals, req ipc.Request) error
	Ring(ctx context.Context, g Globals, rings int) error
	ListBells(ctx context.Context, g Globals, length time.Duration) error
	AddBell(ctx context.Context, g Globals, rule prepbells.Rule) error
	DeleteBell(ctx context.Context, g Globals, index int) error
	ClearBells(ctx context.Context, g Globals, keepFinish bool) error
	Doctor(ctx context.Context, g Globals) error
	Devices(ctx context.Context, g Globals) error
	Version(ctx context.Context) error
}

// UsageError marks a command line that could not be parsed.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// cobra reports these without a typed error.
var cobraUsagePrefixes = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
}

// IsUsage reports whether err came from a malformed command line.
func IsUsage(err error) bool {
	var usage *UsageError
	if errors.As(err, &usage) {
		return true
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, prefix := range cobraUsagePrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// NewRoot builds the command tree around h.
func NewRoot(h Handler) *cobra.Command {
	g := &Globals{}

	root := &cobra.Command{
		Use:   "debatebell",
		Short: "Debate timer with bells, vibration, and screen flashes",
		Long: `debatebell times debate speeches and prep time, ringing bells at the
configured times and alerting through sound, vibration, and screen flashes.

A running timer listens on a control socket, so other invocations can ring,
pause, resume, or stop it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "path to config.jsonc")
	root.PersistentFlags().BoolVar(&g.Debug, "debug", false, "log at debug level")

	root.AddCommand(
		newRunCmd(h, g),
		newRingCmd(h, g),
		forwardCmd(h, g, ipc.CommandStatus, "Print the running timer's state"),
		forwardCmd(h, g, ipc.CommandPause, "Pause the running timer"),
		forwardCmd(h, g, ipc.CommandResume, "Resume the running timer"),
		forwardCmd(h, g, ipc.CommandStop, "Stop the running timer"),
		forwardCmd(h, g, ipc.CommandPOI, "Signal a point of information"),
		newBellsCmd(h, g),
		&cobra.Command{
			Use:   "doctor",
			Short: "Check config and the tools alerts depend on",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Doctor(cmd.Context(), *g)
			},
		},
		&cobra.Command{
			Use:   "devices",
			Short: "List audio output devices",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Devices(cmd.Context(), *g)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Version(cmd.Context())
			},
		},
	)
	return root
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("unexpected arguments: %s", strings.Join(args, " "))
	}
	return nil
}

func forwardCmd(h Handler, g *Globals, command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Forward(cmd.Context(), *g, ipc.Request{Command: command})
		},
	}
}

func newRunCmd(h Handler, g *Globals) *cobra.Command {
	var (
		opts     RunOptions
		length   string
		endAfter string
		bells    []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Time a speech or prep phase",
		Example: `  debatebell run --name "Prime Minister" --length 7:00 --pois
  debatebell run --length 5:00 --bell 1:00/1 --bell 4:00/1 --bell 5:00/2/pause
  debatebell run --prep`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := buildRunOptions(opts, length, endAfter, bells)
			if err != nil {
				return err
			}
			return h.Run(cmd.Context(), *g, parsed)
		},
	}
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "phase name shown in the notification")
	cmd.Flags().StringVarP(&length, "length", "l", "", "phase length as m:ss or a duration (default 7:00, 15:00 with --prep)")
	cmd.Flags().BoolVar(&opts.Prep, "prep", false, "time prep using the saved prep bell rules")
	cmd.Flags().StringArrayVarP(&bells, "bell", "b", nil, "bell as TIME[/RINGS][/pause]; repeatable")
	cmd.Flags().BoolVar(&opts.POIs, "pois", false, "allow points of information outside the first and last minute")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "run headless; control through the socket")
	cmd.Flags().StringVar(&endAfter, "end-after", "", "stop this long after the phase length")
	return cmd
}

func buildRunOptions(opts RunOptions, length, endAfter string, bells []string) (RunOptions, error) {
	opts.Length = DefaultSpeechLength
	if opts.Prep {
		opts.Length = DefaultPrepLength
	}
	if strings.TrimSpace(length) != "" {
		d, err := ParseClock(length)
		if err != nil {
			return RunOptions{}, usagef("--length: %v", err)
		}
		if d <= 0 {
			return RunOptions{}, usagef("--length must be positive")
		}
		opts.Length = d
	}
	if strings.TrimSpace(endAfter) != "" {
		d, err := ParseClock(endAfter)
		if err != nil {
			return RunOptions{}, usagef("--end-after: %v", err)
		}
		opts.EndAfter = d
	}
	if opts.Prep && (len(bells) > 0 || opts.POIs) {
		return RunOptions{}, usagef("--prep uses saved prep bells; --bell and --pois do not apply")
	}
	for _, raw := range bells {
		event, err := ParseBell(raw)
		if err != nil {
			return RunOptions{}, usagef("--bell %q: %v", raw, err)
		}
		opts.Bells = append(opts.Bells, event)
	}
	return opts, nil
}

func newRingCmd(h Handler, g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "ring [RINGS]",
		Short: "Ring the bell on the running timer, or here if none is running",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usagef("ring takes at most one argument")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rings := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 || n > maxRings {
					return usagef("rings must be a number from 1 to %d", maxRings)
				}
				rings = n
			}
			return h.Ring(cmd.Context(), *g, rings)
		},
	}
}

func newBellsCmd(h Handler, g *Globals) *cobra.Command {
	bells := &cobra.Command{
		Use:   "bells",
		Short: "Manage prep time bells",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.ListBells(cmd.Context(), *g, 0)
		},
	}

	var length string
	list := &cobra.Command{
		Use:   "list",
		Short: "List prep bell rules, resolved against --length when given",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var d time.Duration
			if strings.TrimSpace(length) != "" {
				parsed, err := ParseClock(length)
				if err != nil {
					return usagef("--length: %v", err)
				}
				d = parsed
			}
			return h.ListBells(cmd.Context(), *g, d)
		},
	}
	list.Flags().StringVarP(&length, "length", "l", "", "prep length to resolve bell times for")

	add := &cobra.Command{
		Use:   "add start|finish|proportional VALUE",
		Short: "Add a prep bell rule",
		Example: `  debatebell bells add start 5:00
  debatebell bells add finish 2:00
  debatebell bells add proportional 50%`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usagef("add needs a kind and a value")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := ParseRule(args[0], args[1])
			if err != nil {
				return &UsageError{Err: err}
			}
			return h.AddBell(cmd.Context(), *g, rule)
		},
	}

	del := &cobra.Command{
		Use:   "delete INDEX",
		Short: "Delete the prep bell rule at INDEX as shown by list",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("delete needs one index")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return usagef("index must be a positive number")
			}
			return h.DeleteBell(cmd.Context(), *g, n-1)
		},
	}

	var keepFinish bool
	wipe := &cobra.Command{
		Use:   "clear",
		Short: "Delete every prep bell rule",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.ClearBells(cmd.Context(), *g, keepFinish)
		},
	}
	wipe.Flags().BoolVar(&keepFinish, "keep-finish", false, "keep the bell at the end of prep")

	bells.AddCommand(list, add, del, wipe)
	return bells
}
