package prepbells

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRuleSetEditing(t *testing.T) {
	set := DefaultRuleSet()
	require.True(t, set.HasFinishBell())
	require.False(t, set.HasBellsOtherThanFinish())

	require.NoError(t, set.Add(FromStart(time.Minute)))
	require.True(t, set.HasBellsOtherThanFinish())
	require.Equal(t, []string{"at finish", "1:00 after start"}, set.Descriptions())

	require.NoError(t, set.Replace(1, Proportional(0.5)))
	require.Equal(t, Proportional(0.5), set.Rules()[1])

	require.Error(t, set.Replace(5, FromStart(0)))
	require.Error(t, set.Add(Proportional(-1)))

	require.NoError(t, set.Delete(0))
	require.False(t, set.HasFinishBell())
	require.Error(t, set.Delete(3))
}

func TestRuleSetDeleteAllSparesFirstFinish(t *testing.T) {
	set := NewRuleSet(FromStart(0), FromFinish(0), Proportional(1), FromFinish(30*time.Second))
	set.DeleteAll(true)
	require.Equal(t, []Rule{FromFinish(0)}, set.Rules())

	set.DeleteAll(false)
	require.False(t, set.HasBells())
	require.False(t, set.HasBellsOtherThanFinish())
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, []Rule{FromFinish(0)}, loaded.Rules.Rules())
}

func TestParseSkipsInvalidEntries(t *testing.T) {
	doc := `
bells:
  - type: start
    time: 30s
  - type: finish
  - type: proportional
    proportion: 0.5
  - type: sideways
    time: 1m
  - type: proportional
    proportion: 2
`
	set, warnings, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, []Rule{FromStart(30 * time.Second), Proportional(0.5)}, set.Rules())
	require.Len(t, warnings, 3)
	require.Contains(t, warnings[0], "bell 1 skipped: no time found")
}

func TestParseRejectsMalformedDuration(t *testing.T) {
	set, warnings, err := Parse([]byte("bells:\n  - type: start\n    time: soon\n"))
	require.Error(t, err)
	require.Nil(t, set)
	require.Nil(t, warnings)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prep-bells.yaml")
	set := NewRuleSet(FromFinish(0), FromStart(2*time.Minute), Proportional(0.25))

	require.NoError(t, Save(path, set))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "time: 2m0s")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Empty(t, loaded.Warnings)
	require.Equal(t, set.Rules(), loaded.Rules.Rules())
}

func TestDefaultPathUsesXDGConfigHome(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "debatebell", "prep-bells.yaml"), path)
}
