package pid

import (
	"os"
	"strconv"
	"testing"

	"codeberg.org/mutker/ppgview/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Write(dir))

	bytes, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(bytes))

	require.NoError(t, Remove(dir))
	_, err = os.Stat(Path(dir))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, Remove(dir))
}

func TestWriteRefusesLiveProcess(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir))

	err := Write(dir)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()

	for _, stale := range []string{"garbage", "-4", "0"} {
		require.NoError(t, os.WriteFile(Path(dir), []byte(stale), 0o600))
		require.NoError(t, Write(dir))

		bytes, err := os.ReadFile(Path(dir))
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(os.Getpid()), string(bytes))
	}
}

func TestPathDefaultsToTempDir(t *testing.T) {
	assert.Equal(t, os.TempDir(), Path("")[:len(os.TempDir())])
}
