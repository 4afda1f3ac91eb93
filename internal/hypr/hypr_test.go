package hypr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryFocusedMonitor(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "monitors" ]]; then
  echo '[{"name":"HDMI-A-1","focused":false},{"name":" DP-1 ","focused":true}]'
  exit 0
fi
exit 1
`)

	monitor, err := QueryFocusedMonitor(context.Background())
	require.NoError(t, err)
	require.Equal(t, "DP-1", monitor)
}

func TestQueryFocusedMonitorFallsBackToFirst(t *testing.T) {
	installHyprctlStub(t, `
echo '[{"name":"eDP-1","focused":false}]'
`)

	monitor, err := QueryFocusedMonitor(context.Background())
	require.NoError(t, err)
	require.Equal(t, "eDP-1", monitor)
}

func TestQueryMonitorsRejectsEmptyList(t *testing.T) {
	installHyprctlStub(t, `
echo '[]'
`)

	_, err := QueryFocusedMonitor(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no outputs")
}

func TestNotifyAndDismissUseHyprctlDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	err := Notify(context.Background(), 1, 3600000, "", "Debate timer: Prime Minister")
	require.NoError(t, err)

	err = DismissNotify(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "--quiet dispatch notify 1 3600000 rgb(89b4fa) Debate timer: Prime Minister", lines[0])
	require.Equal(t, "--quiet dispatch dismissnotify", lines[1])
}

func TestNotifyReturnsCombinedOutputOnFailure(t *testing.T) {
	installHyprctlStub(t, `
echo 'boom from hyprctl' >&2
exit 1
`)

	err := Notify(context.Background(), 1, 1000, "rgb(ffffff)", "bell")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom from hyprctl")
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
