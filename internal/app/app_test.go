package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/cli"
	"github.com/rbright/debatebell/internal/fsm"
	"github.com/rbright/debatebell/internal/ipc"
	"github.com/rbright/debatebell/internal/session"
)

const quietConfig = `{
  "sound": { "enable": false },
  "vibrate": { "backend": "none" },
  "notification": { "enable": false },
  "wake_lock": { "enable": false },
  "alerts": { "flash_mode": "off" }
}
`

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "debatebell")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteBadFlagValueShowsCommandUsage(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"run", "--bell", "later"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "--bell")
	require.Contains(t, stderr.String(), "debatebell run")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerStopReturnsNoActiveTimer(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no active debatebell timer")
}

func TestRunnerForwardsCommandsToActiveTimer(t *testing.T) {
	paths := setupRunnerEnv(t)
	requests := make(chan ipc.Request, 8)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "debatebell.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "running"}
		default:
			return ipc.Response{OK: true, Message: req.Command + " handled"}
		}
	})
	defer shutdown()

	runner := Runner{}
	commands := [][]string{{"status"}, {"pause"}, {"resume"}, {"poi"}, {"ring", "2"}, {"stop"}}
	for _, args := range commands {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner.Stdout = stdout
		runner.Stderr = stderr

		exitCode := runner.Execute(context.Background(), append([]string{"--config", paths.configPath}, args...))
		require.Equal(t, 0, exitCode, args)
		require.Empty(t, stderr.String(), args)
	}

	var got []string
	for range commands {
		req := <-requests
		got = append(got, req.Command)
		if req.Command == ipc.CommandBell {
			require.Equal(t, 2, req.Rings)
		}
	}
	require.ElementsMatch(t, []string{"status", "pause", "resume", "poi", "bell", "stop"}, got)
}

func TestRunnerSurfacesTimerErrors(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "debatebell.sock"), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Response{OK: false, Error: "points of information are not allowed in this period"}
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "poi"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "not allowed")
}

func TestRunnerStatusFallsBackToIdleWhenServerStateEmpty(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "debatebell.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		require.Equal(t, ipc.CommandStatus, req.Command)
		return ipc.Response{OK: true, State: ""}
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerHeadlessRunIsControlledOverSocket(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte(quietConfig), 0o600))
	socketPath := filepath.Join(paths.runtimeDir, "debatebell.sock")

	var runOut bytes.Buffer
	runner := Runner{Stdout: &runOut, Stderr: &bytes.Buffer{}}
	exitCh := make(chan int, 1)
	go func() {
		exitCh <- runner.Execute(context.Background(), []string{
			"--config", paths.configPath,
			"run", "--no-tui", "--name", "Prime Minister", "--length", "5:00", "--pois",
		})
	}()

	require.Eventually(t, func() bool {
		resp, err := ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, 100*time.Millisecond)
		return err == nil && resp.State == string(fsm.TimerRunning)
	}, 3*time.Second, 20*time.Millisecond)

	var stdout bytes.Buffer
	control := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}
	require.Equal(t, 0, control.Execute(context.Background(), []string{"--config", paths.configPath, "status"}))
	require.Contains(t, stdout.String(), "running  Prime Minister")
	require.Contains(t, stdout.String(), "Protected time")

	require.Equal(t, 1, control.Execute(context.Background(), []string{"--config", paths.configPath, "poi"}))
	require.Equal(t, 0, control.Execute(context.Background(), []string{"--config", paths.configPath, "pause"}))
	require.Equal(t, 0, control.Execute(context.Background(), []string{"--config", paths.configPath, "stop"}))

	select {
	case code := <-exitCh:
		require.Equal(t, 0, code)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not exit after stop")
	}
	require.Contains(t, runOut.String(), "timing Prime Minister (5:00)")
	require.Contains(t, runOut.String(), "Prime Minister stopped at")

	_, statErr := os.Stat(socketPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerRunRefusesSecondTimer(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte(quietConfig), 0o600))

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "debatebell.sock"), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "running"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "run", "--no-tui"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), ipc.ErrAlreadyRunning.Error())
}

func TestRunnerRingWithoutTimerFailsWhenSoundDisabled(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte(quietConfig), 0o600))

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "ring"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "sound is disabled")
}

func TestRunnerEditsPrepBells(t *testing.T) {
	paths := setupRunnerEnv(t)
	rulesPath := filepath.Join(t.TempDir(), "prep-bells.yaml")
	require.NoError(t, os.WriteFile(paths.configPath, []byte(`{"prep_bells": {"path": "`+rulesPath+`"}}`), 0o600))

	run := func(args ...string) (int, string) {
		var stdout bytes.Buffer
		runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}
		code := runner.Execute(context.Background(), append([]string{"--config", paths.configPath, "bells"}, args...))
		return code, stdout.String()
	}

	code, out := run("list")
	require.Equal(t, 0, code)
	require.Contains(t, out, "at finish")

	code, out = run("add", "start", "5:00")
	require.Equal(t, 0, code)
	require.Contains(t, out, "added prep bell 5:00 after start")

	code, out = run("list", "--length", "15:00")
	require.Equal(t, 0, code)
	require.Contains(t, out, "5:00 after start")
	require.Contains(t, out, "bells for 15:00 of prep")

	code, _ = run("delete", "9")
	require.Equal(t, 1, code)

	code, out = run("delete", "1")
	require.Equal(t, 0, code)
	require.Contains(t, out, "deleted prep bell at finish")

	code, out = run("clear")
	require.Equal(t, 0, code)
	require.Contains(t, out, "cleared prep bells")
	code, out = run("list")
	require.Equal(t, 0, code)
	require.Contains(t, out, "no prep bells")

	code, out = run("clear", "--keep-finish")
	require.Equal(t, 0, code)
	require.Contains(t, out, "nothing to clear")
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "audio.sink")
	require.NotContains(t, stderr.String(), "reported")
}

func TestRunnerDevicesCommandDispatches(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "debatebell.sock")
	shutdown := startIPCServerForRunnerTest(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		if req.Command == ipc.CommandStatus {
			return ipc.Response{OK: true, State: "running"}
		}
		return ipc.Response{OK: false, Error: "cannot pause from state stopped"}
	})
	defer shutdown()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "running", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandPause})
	require.True(t, handled)
	require.ErrorContains(t, err, "cannot pause")
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "debatebell.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus})
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "debatebell.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, handled)
	require.ErrorContains(t, err, "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

func TestFormatStatus(t *testing.T) {
	require.Equal(t, "idle", formatStatus(ipc.Response{OK: true}))
	require.Equal(t,
		"running  Leader of the Opposition  1:05/7:00  next bell 6:00  POIs allowed  ringing",
		formatStatus(ipc.Response{
			OK:         true,
			State:      "running",
			Phase:      "Leader of the Opposition",
			ElapsedMS:  65_000,
			LengthMS:   420_000,
			NextBellMS: 360_000,
			Period:     "POIs allowed",
			Ringing:    true,
		}),
	)
}

func TestBuildSpeechDefaults(t *testing.T) {
	speech := buildSpeech(cli.RunOptions{Name: "PM", Length: 7 * time.Minute, POIs: true})
	require.Equal(t, "PM", speech.Reference())
	require.True(t, speech.HasPOIsAllowedSomewhere())

	var times []time.Duration
	for _, b := range speech.BellsSorted() {
		times = append(times, b.Time)
	}
	require.Equal(t, []time.Duration{time.Minute, 6 * time.Minute, 7 * time.Minute}, times)

	require.Equal(t, "Protected time", speech.ActivePeriod(30*time.Second).DescriptionText())
	require.True(t, speech.ActivePeriod(2*time.Minute).POIsAllowed)
	require.False(t, speech.ActivePeriod(6*time.Minute+time.Second).POIsAllowed)
	require.Equal(t, "Overtime", speech.ActivePeriod(7*time.Minute).DescriptionText())

	last, ok := speech.BellAt(7 * time.Minute)
	require.True(t, ok)
	require.Equal(t, 2, last.Sound.RingCount)
}

func TestBuildSpeechAddsSilentPeriodBells(t *testing.T) {
	speech := buildSpeech(cli.RunOptions{
		Length: 5 * time.Minute,
		POIs:   true,
		Bells:  []bell.Event{{Time: 5 * time.Minute, Sound: bell.Rings(3), PauseOnBell: true}},
	})

	open, ok := speech.BellAt(time.Minute)
	require.True(t, ok)
	require.True(t, open.IsSilent())
	require.NotNil(t, open.NextPeriod)

	end, ok := speech.BellAt(5 * time.Minute)
	require.True(t, ok)
	require.True(t, end.PauseOnBell)
	require.Equal(t, 3, end.Sound.RingCount)
}

func TestDefaultSpeechBellsShortSpeech(t *testing.T) {
	bells := defaultSpeechBells(90 * time.Second)
	require.Equal(t, []bell.Event{{Time: 90 * time.Second, Sound: bell.Rings(2)}}, bells)
}

func TestLogSessionResultWritesFailureAndSuccess(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	started := time.Now()
	finished := started.Add(1500 * time.Millisecond)

	logSessionResult(logger, "PM", session.Result{
		State:      fsm.TimerStopped,
		Elapsed:    7*time.Minute + 3*time.Second,
		BellsRung:  3,
		StartedAt:  started,
		FinishedAt: finished,
	})
	require.Contains(t, logBuf.String(), "phase complete")
	require.Contains(t, logBuf.String(), "\"bells_rung\":3")
	require.Contains(t, logBuf.String(), "\"elapsed\":\"7:03\"")

	logBuf.Reset()
	logSessionResult(logger, "PM", session.Result{
		State:      fsm.TimerStopped,
		StartedAt:  started,
		FinishedAt: finished,
		Err:        errors.New("boom"),
	})
	require.Contains(t, logBuf.String(), "phase failed")
	require.Contains(t, logBuf.String(), "boom")
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv(ipc.SocketEnv, "")

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte("\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
