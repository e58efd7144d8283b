package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipmifanctl.pid")

	f, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, f.Release())
	assert.NoFileExists(t, path)
	assert.NoError(t, f.Release(), "releasing twice is harmless")
}

func TestAcquireRejectsLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipmifanctl.pid")
	// The parent of the test binary is alive for the duration of the test.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	_, err := Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	tests := map[string]string{
		"dead process": "99999999",
		"garbage":      "not a pid",
		"empty":        "",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ipmifanctl.pid")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			f, err := Acquire(path)
			require.NoError(t, err)
			require.NoError(t, f.Release())
		})
	}
}

func TestReleaseKeepsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipmifanctl.pid")

	f, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o600))

	require.NoError(t, f.Release())
	assert.FileExists(t, path)
}
